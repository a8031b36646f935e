// controller/verification_controller.go
package controller

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"emailfinder/models"
	"emailfinder/utils"
)

// EmailVerifier is satisfied by *utils.Verifier.
type EmailVerifier interface {
	Verify(ctx context.Context, email string) models.VerificationResult
	VerifyBatch(ctx context.Context, emails []string) []models.VerificationResult
}

type VerificationController struct {
	Verifier EmailVerifier
	Logger   logrus.FieldLogger
}

func NewVerificationController(verifier EmailVerifier, logger logrus.FieldLogger) *VerificationController {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &VerificationController{
		Verifier: verifier,
		Logger:   logger,
	}
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required"`
}

type VerifyBatchRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=100,dive,required"`
}

// VerifyEmail checks one address. A malformed address is a zero-confidence
// result, not a request error.
func (vc *VerificationController) VerifyEmail(c *fiber.Ctx) error {
	var req VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, codeInvalidInput, "Invalid request format")
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return respondError(c, err)
	}

	result := vc.Verifier.Verify(c.UserContext(), req.Email)
	vc.Logger.WithFields(logrus.Fields{
		"client":     clientOf(c),
		"email":      result.Email,
		"confidence": result.Confidence,
	}).Info("email verified")
	return c.JSON(result)
}

// VerifyBatch checks several addresses and returns them by descending confidence.
func (vc *VerificationController) VerifyBatch(c *fiber.Ctx) error {
	var req VerifyBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, codeInvalidInput, "Invalid request format")
	}
	for i := range req.Emails {
		req.Emails[i] = strings.TrimSpace(req.Emails[i])
	}
	if err := utils.ValidateStruct(req); err != nil {
		return respondError(c, err)
	}

	results := vc.Verifier.VerifyBatch(c.UserContext(), req.Emails)
	vc.Logger.WithFields(logrus.Fields{
		"client": clientOf(c),
		"count":  len(results),
	}).Info("email batch verified")
	return c.JSON(fiber.Map{
		"results": results,
	})
}
