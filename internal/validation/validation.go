// Package validation checks raw JSON request bodies against the embedded
// schemas before handlers decode them.
package validation

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/apperr"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names, one per request body shape.
const (
	Register          = "register"
	Login             = "login"
	UserUpdate        = "user_update"
	ProjectCreate     = "project_create"
	ProjectUpdate     = "project_update"
	ApplicationCreate = "application_create"
	ApplicationUpdate = "application_update"
	PaymentIntent     = "payment_intent"
	PaymentConfirm    = "payment_confirm"
	MessageCreate     = "message_create"
)

type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles every embedded schema; a broken schema is a startup error.
func New() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, err
	}

	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(entries))}
	for _, e := range entries {
		raw, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, err
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(raw, rs); err != nil {
			return nil, fmt.Errorf("schema %s: %w", e.Name(), err)
		}
		v.schemas[strings.TrimSuffix(e.Name(), ".json")] = rs
	}
	return v, nil
}

// MustNew is New for process start-up and tests.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate returns an apperr validation error listing every offending field.
func (v *Validator) Validate(ctx context.Context, name string, body []byte) error {
	rs, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	if len(body) == 0 {
		return apperr.Validation("request body is required", nil)
	}

	keyErrs, err := rs.ValidateBytes(ctx, body)
	if err != nil {
		return apperr.Validation("invalid JSON body", nil)
	}
	if len(keyErrs) == 0 {
		return nil
	}

	fields := apperr.FieldErrors{}
	for _, ke := range keyErrs {
		fields.Add(fieldName(ke.PropertyPath), ke.Message)
	}
	return apperr.Validation("validation error", fields)
}

func fieldName(propertyPath string) string {
	f := strings.Trim(propertyPath, "/")
	if f == "" {
		return "body"
	}
	return strings.ReplaceAll(f, "/", ".")
}
