// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	businessflow "github.com/friendumbrella/landing-api/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "eqfield":
		return err.Field() + " must match " + err.Param()
	case "password_strength":
		return "Password must contain at least 1 uppercase letter and 1 number"
	default:
		return err.Field() + " is invalid"
	}
}

// pageContextFromRequest builds the page context the attribution extractor
// works from. Single-page frontends report the current address via the
// X-Landing-Page header; the Referer header covers plain form posts.
func pageContextFromRequest(c fiber.Ctx) businessflow.PageContext {
	address := c.Get("X-Landing-Page")
	if address == "" {
		address = c.Get("Referer")
	}
	return businessflow.PageContext{
		Address:  address,
		Referrer: c.Get("Referer"),
	}
}
