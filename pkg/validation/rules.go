package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/goliatone/go-formkit/pkg/model"
)

var patternCache sync.Map // string -> *regexp.Regexp

// CheckSync evaluates field's rules in order and returns the first failure,
// or a valid outcome when every rule passes.
func CheckSync(field model.Field, value model.Value) Outcome {
	for _, rule := range field.Rules {
		if out := checkRule(rule, value); out.Status == StatusInvalid {
			return out
		}
	}
	return Outcome{Status: StatusValid}
}

func checkRule(rule model.Rule, value model.Value) Outcome {
	pass := Outcome{Status: StatusValid, Rule: rule.Kind}
	fail := func(fallback string) Outcome {
		msg := rule.Message
		if msg == "" {
			msg = fallback
		}
		return Outcome{Status: StatusInvalid, Message: msg, Rule: rule.Kind}
	}

	if rule.Kind == model.RuleRequired {
		if value.IsBlank() {
			return fail("required")
		}
		return pass
	}
	// optional fields with no value skip every other rule
	if value.IsAbsent() {
		return pass
	}

	switch rule.Kind {
	case model.RuleMinLength, model.RuleMaxLength:
		limit, err := strconv.Atoi(rule.Params["value"])
		if err != nil {
			return fail("invalid length rule")
		}
		n := utf8.RuneCountInString(value.Text())
		if rule.Kind == model.RuleMinLength && n < limit {
			return fail(fmt.Sprintf("min length %d", limit))
		}
		if rule.Kind == model.RuleMaxLength && n > limit {
			return fail(fmt.Sprintf("max length %d", limit))
		}
	case model.RuleMin, model.RuleMax:
		bound, err := strconv.ParseFloat(rule.Params["value"], 64)
		if err != nil {
			return fail("invalid bound rule")
		}
		n, ok := value.Num()
		if !ok {
			return fail("expected a number")
		}
		if rule.Kind == model.RuleMin && n < bound {
			return fail(fmt.Sprintf("min %v", bound))
		}
		if rule.Kind == model.RuleMax && n > bound {
			return fail(fmt.Sprintf("max %v", bound))
		}
	case model.RulePattern:
		re, err := compilePattern(rule.Params["pattern"])
		if err != nil {
			return fail("invalid pattern rule")
		}
		if !re.MatchString(value.Text()) {
			return fail("does not match required pattern")
		}
	default:
		return fail(fmt.Sprintf("unknown rule %q", rule.Kind))
	}
	return pass
}

func compilePattern(expr string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(expr); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	patternCache.Store(expr, re)
	return re, nil
}
