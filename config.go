package globalcache

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Configuration constants for cache operations
const (
	// DefaultNamespace is the tenant tag prefixed to every entity key.
	DefaultNamespace = "INDUSTRIAL"
	// KeyDelimiter joins key components.
	KeyDelimiter = ":"

	// Aerospike record layout
	DefaultAerospikeNamespace = "test"
	DefaultAerospikeSet       = "global_cache"
	DefaultValueBin           = "value"
	DefaultSetBin             = "members"
	DefaultFieldsBin          = "fields"

	// UDF module registered on the Aerospike server
	DefaultUDFModule   = "set"
	DefaultUDFFilename = "set.lua"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds the key layout shared by every entity projection.
type Config struct {
	Namespace string `validate:"required,excludesall=:"`
	Delimiter string `validate:"required"`
}

// DefaultConfig returns the default key layout
func DefaultConfig() Config {
	return Config{
		Namespace: DefaultNamespace,
		Delimiter: KeyDelimiter,
	}
}

// Validate checks if the Config is valid
func (c Config) Validate() error {
	return validateStruct(c)
}

// AerospikeConfig describes where the record-store adapter keeps its data.
type AerospikeConfig struct {
	Namespace   string `validate:"required"`
	SetName     string `validate:"required"`
	ValueBin    string `validate:"required,max=15"`
	SetBin      string `validate:"required,max=15"`
	FieldsBin   string `validate:"required,max=15"`
	UDFModule   string `validate:"required"`
	UDFFilename string `validate:"required,endswith=.lua"`

	// SkipUDFRegistration leaves script installation to the operator
	// (see `globalcache udf install`).
	SkipUDFRegistration bool
}

// DefaultAerospikeConfig returns the default Aerospike record layout
func DefaultAerospikeConfig() AerospikeConfig {
	return AerospikeConfig{
		Namespace:   DefaultAerospikeNamespace,
		SetName:     DefaultAerospikeSet,
		ValueBin:    DefaultValueBin,
		SetBin:      DefaultSetBin,
		FieldsBin:   DefaultFieldsBin,
		UDFModule:   DefaultUDFModule,
		UDFFilename: DefaultUDFFilename,
	}
}

// Validate checks if the AerospikeConfig is valid
func (c AerospikeConfig) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if c.ValueBin == c.SetBin {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "SetBin",
			"value":  c.SetBin,
			"reason": "set bin must differ from value bin",
		})
	}
	if c.FieldsBin == c.ValueBin || c.FieldsBin == c.SetBin {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "FieldsBin",
			"value":  c.FieldsBin,
			"reason": "fields bin must differ from value and set bins",
		})
	}
	return nil
}

// validateStruct runs struct tag validation and reports the first
// failing field as ErrInvalidConfig.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  fe.Field(),
			"value":  fe.Value(),
			"reason": fe.Tag(),
		})
	}
	return WithContext(ErrInvalidConfig, map[string]interface{}{
		"reason": err.Error(),
	})
}
