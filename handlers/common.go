package handlers

import (
	"github.com/avinashd07/shop_mitra/apperrors"
	"github.com/avinashd07/shop_mitra/middleware"
	"github.com/avinashd07/shop_mitra/models"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

var validate = validator.New()

// canAccessOrder allows the order's owner (user or guest session) and admins.
func canAccessOrder(c *fiber.Ctx, order *models.Order) bool {
	if token, ok := c.Locals("user").(*jwt.Token); ok {
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if role, ok := claims["role"].(string); ok && role == "admin" {
				return true
			}
		}
	}

	userID, guestSessionID := middleware.ResolveOwner(c)
	if order.UserID != nil && userID != nil && *order.UserID == *userID {
		return true
	}
	if order.GuestSessionID != nil && guestSessionID != nil && *order.GuestSessionID == *guestSessionID {
		return true
	}
	return false
}

// respondError maps typed app errors onto HTTP status classes: lookup misses
// to 404, state/amount/signature violations to 400s, gateway trouble to 502.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		status = fiber.StatusNotFound
		message = err.Error()
	case apperrors.KindDuplicatePayment:
		status = fiber.StatusConflict
		message = err.Error()
	case apperrors.KindInvalidState, apperrors.KindInvalidAmount,
		apperrors.KindInvalidSignature, apperrors.KindNoCheckoutAvailable:
		status = fiber.StatusBadRequest
		message = err.Error()
	case apperrors.KindGatewayFailure:
		status = fiber.StatusBadGateway
		message = "Payment gateway is currently unavailable, please try again"
	}

	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"kind":  string(apperrors.KindOf(err)),
	})
}
