package checkout

import (
	"sort"
	"strings"

	"github.com/pagecart/internal/phone"
)

// ValidationError 汇总提交前发现的字段错误，键为字段名。
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e.Fields[key])
	}
	return "invalid order: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
}

// validateLocked 返回 nil 或 *ValidationError，调用方必须持有锁。
func (f *Flow) validateLocked() error {
	verr := &ValidationError{}
	if f.variant == nil {
		verr.add("variant", "please choose a product")
	}
	if f.quantity < 1 {
		verr.add("quantity", "quantity must be at least 1")
	}
	if strings.TrimSpace(f.contact.Name) == "" {
		verr.add("name", "name is required")
	}
	if strings.TrimSpace(f.contact.Phone) == "" {
		verr.add("phone", "mobile number is required")
	} else if !phone.Valid(f.contact.Phone) {
		verr.add("phone", "enter a valid 11 digit mobile number")
	}
	if len([]rune(strings.TrimSpace(f.contact.Address))) < 5 {
		verr.add("address", "full address is required")
	}
	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}
