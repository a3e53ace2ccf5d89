package security

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Signatures holds the pattern lists driving anti-bot detection. They are
// data, not logic: operators can extend them without a rebuild.
type Signatures struct {
	CaptchaDomains   []string `yaml:"captcha_domains"`
	AntiBotDomains   []string `yaml:"anti_bot_domains"`
	RateLimitHeaders []string `yaml:"rate_limit_headers"`
	TitlePhrases     []string `yaml:"title_phrases"`
}

// DefaultSignatures returns the built-in pattern lists.
func DefaultSignatures() Signatures {
	return Signatures{
		CaptchaDomains: []string{
			"recaptcha",
			"hcaptcha",
			"funcaptcha",
			"arkoselabs",
			"geetest",
			"turnstile",
			"captcha.com",
		},
		AntiBotDomains: []string{
			"datadome",
			"perimeterx",
			"px-cloud",
			"imperva",
			"incapsula",
			"kasada",
			"distilnetworks",
			"fingerprintjs",
			"akamaihd.net/botman",
		},
		RateLimitHeaders: []string{
			"rate-limit",
			"x-ratelimit",
			"retry-after",
		},
		TitlePhrases: []string{
			"captcha",
			"security check",
			"are you a robot",
		},
	}
}

// LoadSignatures reads pattern lists from a YAML file. Missing sections fall
// back to the built-in defaults so a partial file stays usable.
func LoadSignatures(path string) (Signatures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Signatures{}, fmt.Errorf("read signatures file: %w", err)
	}

	var sigs Signatures
	if err := yaml.Unmarshal(data, &sigs); err != nil {
		return Signatures{}, fmt.Errorf("parse signatures file: %w", err)
	}

	defaults := DefaultSignatures()
	if len(sigs.CaptchaDomains) == 0 {
		sigs.CaptchaDomains = defaults.CaptchaDomains
	}
	if len(sigs.AntiBotDomains) == 0 {
		sigs.AntiBotDomains = defaults.AntiBotDomains
	}
	if len(sigs.RateLimitHeaders) == 0 {
		sigs.RateLimitHeaders = defaults.RateLimitHeaders
	}
	if len(sigs.TitlePhrases) == 0 {
		sigs.TitlePhrases = defaults.TitlePhrases
	}
	return sigs, nil
}
