package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/snapfeed/snapfeed/config"
	"github.com/snapfeed/snapfeed/utils"
)

// ConfigController serves runtime configuration the client reads at boot.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetClientConfig returns the settings the dashboard needs.
func (c *ConfigController) GetClientConfig(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"api_base_url":     cfg.APIBaseURL,
		"captcha_required": cfg.RegisterCaptchaEnabled,
	})
}
