// Package routes translates HTTP requests into model operations. All row
// data crosses this boundary as JSON objects keyed by field name; the ORM
// maps them onto the positional table API.
package routes

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"rdb/database"
	"rdb/orm"
)

// SetupRoutes registers the resource routes on router. Every defined model
// gets the same CRUD surface under /<model>.
func SetupRoutes(router fiber.Router, reg *orm.Registry) {
	router.Get("/schema", func(c *fiber.Ctx) error {
		schema := fiber.Map{}
		for _, name := range reg.Models() {
			model, err := reg.Get(name)
			if err != nil {
				continue
			}
			schema[name] = model.Fields
		}
		return c.JSON(fiber.Map{"models": schema})
	})

	router.Get("/:resource", handleIndex(reg))
	router.Post("/:resource", handleCreate(reg))
	router.Post("/:resource/compact", handleCompact(reg))
	router.Get("/:resource/:id", handleView(reg))
	router.Put("/:resource/:id", handleUpdate(reg))
	router.Delete("/:resource/:id", handleDelete(reg))
}

func lookupModel(c *fiber.Ctx, reg *orm.Registry) (*orm.Model, error) {
	model, err := reg.Get(c.Params("resource"))
	if err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return model, nil
}

func parseID(c *fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return 0, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be an integer"})
	}
	return id, nil
}

func instanceJSON(inst *orm.Instance) fiber.Map {
	out := fiber.Map{}
	for _, f := range inst.Model().Fields {
		value, _ := inst.Get(f.Name)
		out[f.Name] = value
	}
	return out
}

func applyFields(inst *orm.Instance, body map[string]string) error {
	for field, value := range body {
		if err := inst.Set(field, value); err != nil {
			return err
		}
	}
	return nil
}

func handleIndex(reg *orm.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		model, err := lookupModel(c, reg)
		if model == nil {
			return err
		}
		instances, err := model.All()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		records := make([]fiber.Map, 0, len(instances))
		for _, inst := range instances {
			records = append(records, instanceJSON(inst))
		}
		return c.JSON(fiber.Map{"records": records, "count": len(records)})
	}
}

func handleView(reg *orm.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		model, err := lookupModel(c, reg)
		if model == nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}
		inst, err := model.Find(id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "record not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(instanceJSON(inst))
	}
}

func handleCreate(reg *orm.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		model, err := lookupModel(c, reg)
		if model == nil {
			return err
		}
		var body map[string]string
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}

		inst := model.NewInstance()
		if err := applyFields(inst, body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if err := inst.Save(); err != nil {
			status := fiber.StatusInternalServerError
			if errors.Is(err, database.ErrDuplicateKey) {
				status = fiber.StatusConflict
			}
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(instanceJSON(inst))
	}
}

func handleUpdate(reg *orm.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		model, err := lookupModel(c, reg)
		if model == nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var body map[string]string
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}

		inst, err := model.Find(id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "record not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		// The primary key is addressed by the URL, not the body.
		delete(body, model.PrimaryField())
		if err := applyFields(inst, body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if err := inst.Save(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(instanceJSON(inst))
	}
}

func handleDelete(reg *orm.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		model, err := lookupModel(c, reg)
		if model == nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}
		inst, err := model.Find(id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "record not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if err := inst.Delete(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "deleted"})
	}
}

func handleCompact(reg *orm.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		model, err := lookupModel(c, reg)
		if model == nil {
			return err
		}
		if err := model.Compact(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "compacted"})
	}
}
