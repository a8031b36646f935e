package controller

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"emailfinder/finder"
	"emailfinder/models"
	"emailfinder/utils"
)

const (
	codeInvalidInput     = "invalid_input"
	codeCrawlStartFailed = "crawl_start_failed"
	codeTimeout          = "timeout"
	codeInternal         = "internal_error"
)

type DiscoveryController struct {
	Service *finder.Service
	Logger  logrus.FieldLogger
}

func NewDiscoveryController(service *finder.Service, logger logrus.FieldLogger) *DiscoveryController {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DiscoveryController{
		Service: service,
		Logger:  logger,
	}
}

// FindEmailRequest names the person and the organization's domain. Either
// name part may be omitted.
type FindEmailRequest struct {
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Domain    string `json:"domain" validate:"required,max=253"`
}

func (r *FindEmailRequest) trim() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Domain = strings.TrimSpace(r.Domain)
}

// clientOf returns the token subject set by the auth middleware, or
// "anonymous" when the API runs without a secret.
func clientOf(c *fiber.Ctx) string {
	if client, ok := c.Locals("client").(string); ok && client != "" {
		return client
	}
	return "anonymous"
}

func (dc *DiscoveryController) parse(c *fiber.Ctx) (*FindEmailRequest, error) {
	var req FindEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, &models.InputValidationError{Message: "Invalid request format"}
	}
	req.trim()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	return &req, nil
}

// FindEmail crawls without verifying and returns every match plus the best one.
func (dc *DiscoveryController) FindEmail(c *fiber.Ctx) error {
	req, err := dc.parse(c)
	if err != nil {
		return respondError(c, err)
	}
	dc.Logger.WithFields(logrus.Fields{
		"client": clientOf(c),
		"domain": req.Domain,
	}).Info("find email requested")

	result, err := dc.Service.FindEmail(c.UserContext(), req.FirstName, req.LastName, req.Domain)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// FindAndVerify crawls, verifies the first candidates and returns the fused judgement.
func (dc *DiscoveryController) FindAndVerify(c *fiber.Ctx) error {
	req, err := dc.parse(c)
	if err != nil {
		return respondError(c, err)
	}
	dc.Logger.WithFields(logrus.Fields{
		"client": clientOf(c),
		"domain": req.Domain,
	}).Info("find and verify requested")

	result, err := dc.Service.DiscoverAndVerify(c.UserContext(), req.FirstName, req.LastName, req.Domain)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// Health reports liveness.
func (dc *DiscoveryController) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "emailfinder",
	})
}

// respondError maps the error taxonomy onto the closed set of client codes.
func respondError(c *fiber.Ctx, err error) error {
	var startErr *models.CrawlStartFailure
	switch {
	case models.IsInputValidation(err):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, codeInvalidInput, err.Error())
	case errors.As(err, &startErr):
		return utils.ErrorResponse(c, fiber.StatusBadGateway, codeCrawlStartFailed,
			"Could not start crawling "+startErr.Domain)
	case errors.Is(err, models.ErrDiscoveryTimeout):
		return utils.ErrorResponse(c, fiber.StatusGatewayTimeout, codeTimeout, "Email discovery timed out")
	default:
		utils.LogError("request_failed", err, map[string]interface{}{
			"path": c.Path(),
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, codeInternal, "Internal server error")
	}
}
