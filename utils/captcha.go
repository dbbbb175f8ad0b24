package utils

import (
	"github.com/mojocn/base64Captcha"
)

var captchaStore base64Captcha.Store = base64Captcha.DefaultMemStore

// UseRedisCaptchaStore switches the captcha store to Redis when available,
// so captcha answers work behind a load balancer.
func UseRedisCaptchaStore() {
	if GetRedis() != nil {
		captchaStore = NewRedisCaptchaStore(0)
	}
}

// GenerateCaptcha creates a captcha and returns (id, dataURI) for the
// frontend to display.
func GenerateCaptcha() (string, string, error) {
	driver := base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80)
	c := base64Captcha.NewCaptcha(driver, captchaStore)
	id, b64, _, err := c.Generate()
	return id, b64, err
}

// VerifyCaptcha verifies the provided answer; it consumes the captcha on success.
func VerifyCaptcha(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return captchaStore.Verify(id, answer, true)
}
