package utils

import "github.com/gofiber/fiber/v2"

// Success writes the standard envelope. data may be nil.
func Success(c *fiber.Ctx, status int, message string, data interface{}) error {
	body := fiber.Map{"message": message}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message})
}

// Paginated writes a page of items under itemsKey together with the page metadata.
func Paginated(c *fiber.Ctx, message, itemsKey string, items interface{}, page Page) error {
	return Success(c, fiber.StatusOK, message, fiber.Map{
		"page":          page.Page,
		"limit":         page.Limit,
		"documentCount": page.Total,
		"isNext":        page.IsNext,
		"isPrevious":    page.IsPrevious,
		itemsKey:        items,
	})
}
