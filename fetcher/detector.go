package fetcher

import (
	"regexp"
	"strings"
)

// BotDetector classifies fetched pages that are bot walls instead of real
// product pages. Detection only: a blocked page is reported upstream, never
// retried with evasion tricks.
type BotDetector struct {
	botPatterns     []*regexp.Regexp
	captchaPatterns []*regexp.Regexp
	blockPatterns   []*regexp.Regexp
}

// NewBotDetector compiles the detection patterns. Storefronts served to
// Brazilian shoppers mix English and Portuguese challenge texts, so both
// are covered.
func NewBotDetector() *BotDetector {
	return &BotDetector{
		botPatterns: compilePatterns([]string{
			`robot check`,
			`automated access`,
			`unusual traffic`,
			`verify you are a human`,
			`confirme que você não é um robô`,
			`acesso automatizado`,
			`enable cookies`,
			`to discuss automated access`,
		}),
		captchaPatterns: compilePatterns([]string{
			`captcha`,
			`recaptcha`,
			`hcaptcha`,
			`type the characters you see`,
			`digite os caracteres`,
		}),
		blockPatterns: compilePatterns([]string{
			`access denied`,
			`acesso negado`,
			`403 forbidden`,
			`request blocked`,
			`too many requests`,
		}),
	}
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// DetectBotWall scores the page content against the pattern sets and returns
// whether it is a bot wall, the matched reasons, and the confidence score.
func (bd *BotDetector) DetectBotWall(pageContent, pageTitle string) (bool, string, float64) {
	content := strings.ToLower(pageContent + " " + pageTitle)

	score := 0.0
	var reasons []string

	for _, pattern := range bd.botPatterns {
		if pattern.MatchString(content) {
			score += 0.3
			reasons = append(reasons, pattern.String())
		}
	}
	for _, pattern := range bd.captchaPatterns {
		if pattern.MatchString(content) {
			score += 0.5
			reasons = append(reasons, "captcha: "+pattern.String())
		}
	}
	for _, pattern := range bd.blockPatterns {
		if pattern.MatchString(content) {
			score += 0.4
			reasons = append(reasons, "blocked: "+pattern.String())
		}
	}

	// challenge pages are tiny compared to product pages
	if len(content) < 1000 && score > 0 {
		score += 0.2
		reasons = append(reasons, "short content with bot indicators")
	}

	if score > 1.0 {
		score = 1.0
	}

	return score > 0.3, strings.Join(reasons, "; "), score
}

// DetectCaptcha reports whether the page is specifically a CAPTCHA challenge.
func (bd *BotDetector) DetectCaptcha(pageContent, pageTitle string) bool {
	content := strings.ToLower(pageContent + " " + pageTitle)
	for _, pattern := range bd.captchaPatterns {
		if pattern.MatchString(content) {
			return true
		}
	}
	return false
}

// GetBlockType names the kind of blocking for logging and error messages.
func (bd *BotDetector) GetBlockType(pageContent, pageTitle string) string {
	if bd.DetectCaptcha(pageContent, pageTitle) {
		return "captcha"
	}
	content := strings.ToLower(pageContent + " " + pageTitle)
	for _, pattern := range bd.blockPatterns {
		if pattern.MatchString(content) {
			return "http_error"
		}
	}
	return "bot_wall"
}
