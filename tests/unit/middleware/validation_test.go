package middleware_test

import (
	"testing"

	. "ftmgedf/pkg/api/middleware"
)

func TestValidator_ValidateTaskCount_RejectsEmpty(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())

	if err := v.ValidateTaskCount(0); err == nil {
		t.Error("expected empty task set to be rejected")
	}
}

func TestValidator_ValidateTaskCount_RejectsTooMany(t *testing.T) {
	cfg := DefaultValidatorConfig()
	cfg.MaxTasks = 5
	v := NewValidator(cfg)

	if err := v.ValidateTaskCount(6); err == nil {
		t.Error("expected task count exceeding the maximum to be rejected")
	}
	if err := v.ValidateTaskCount(5); err != nil {
		t.Errorf("expected task count at the maximum to be valid, got: %v", err)
	}
}

func TestValidator_ValidateCoreConfig_RejectsNonPositiveCores(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())

	if err := v.ValidateCoreConfig(0, 0); err == nil {
		t.Error("expected zero cores to be rejected")
	}
}

func TestValidator_ValidateCoreConfig_RejectsTooManyCores(t *testing.T) {
	cfg := DefaultValidatorConfig()
	cfg.MaxNumCores = 8
	v := NewValidator(cfg)

	if err := v.ValidateCoreConfig(16, 1); err == nil {
		t.Error("expected core count exceeding the maximum to be rejected")
	}
}

func TestValidator_ValidateCoreConfig_RejectsFaultyExceedingCores(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())

	if err := v.ValidateCoreConfig(4, 5); err == nil {
		t.Error("expected numFaulty exceeding numCores to be rejected")
	}
	if err := v.ValidateCoreConfig(4, -1); err == nil {
		t.Error("expected negative numFaulty to be rejected")
	}
}

func TestValidator_ValidateHorizon_RejectsNonPositive(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())

	if err := v.ValidateHorizon(10, 10); err == nil {
		t.Error("expected a zero-width horizon to be rejected")
	}
	if err := v.ValidateHorizon(10, 5); err == nil {
		t.Error("expected endTime before startTime to be rejected")
	}
}

func TestValidator_ValidateHorizon_RejectsTooLong(t *testing.T) {
	cfg := DefaultValidatorConfig()
	cfg.MaxHorizon = 100
	v := NewValidator(cfg)

	if err := v.ValidateHorizon(0, 1000); err == nil {
		t.Error("expected a horizon exceeding the maximum to be rejected")
	}
}

func TestValidator_ValidateName_RejectsTooLong(t *testing.T) {
	cfg := DefaultValidatorConfig()
	cfg.MaxNameLength = 5
	v := NewValidator(cfg)

	if err := v.ValidateName("toolongname"); err == nil {
		t.Error("expected too long name to be rejected")
	}
}

func TestValidator_ValidateName_AcceptsEmpty(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())

	if err := v.ValidateName(""); err != nil {
		t.Errorf("expected an empty (optional) name to be valid, got: %v", err)
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Field:   "taskset",
		Message: "is required",
	}

	expected := "taskset: is required"
	if err.Error() != expected {
		t.Errorf("expected '%s', got '%s'", expected, err.Error())
	}
}
