package ethproviders

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config maps a network name to its settings.
type Config map[string]NetworkConfig

type NetworkConfig struct {
	ID       uint64 `toml:"id" json:"id" mapstructure:"id" validate:"required"`
	URL      string `toml:"url" json:"url" mapstructure:"url" validate:"required,url"`
	Testnet  bool   `toml:"testnet" json:"testnet" mapstructure:"testnet"`
	Disabled bool   `toml:"disabled" json:"disabled" mapstructure:"disabled"`
}

var ErrInvalidConfig = errors.New("ethproviders: invalid config")

var validate = validator.New()

// Validate checks every enabled network and that no two of them share a chain id
// or a name.
func (n Config) Validate() error {
	names := make([]string, 0, len(n))
	for name := range n {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	seenIDs := map[uint64]string{}
	seenNames := map[string]string{}
	for _, name := range names {
		details := n[name]
		if details.Disabled {
			continue
		}
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("%w: empty network name", ErrInvalidConfig))
			continue
		}
		if err := validate.Struct(details); err != nil {
			errs = append(errs, fmt.Errorf("%w: network %s: %s", ErrInvalidConfig, name, validationMessage(err)))
			continue
		}
		if other, ok := seenIDs[details.ID]; ok {
			errs = append(errs, fmt.Errorf("%w: networks %s and %s share chain id %d", ErrInvalidConfig, other, name, details.ID))
		}
		seenIDs[details.ID] = name

		lower := strings.ToLower(name)
		if other, ok := seenNames[lower]; ok {
			errs = append(errs, fmt.Errorf("%w: networks %s and %s differ only in case", ErrInvalidConfig, other, name))
		}
		seenNames[lower] = name
	}
	return errors.Join(errs...)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s %q is not a valid url", field, e.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, e.Tag()))
		}
	}
	return strings.Join(msgs, ", ")
}

func (n Config) GetByID(id uint64) (string, NetworkConfig, bool) {
	for k, v := range n {
		if v.ID == id {
			return k, v, true
		}
	}
	return "", NetworkConfig{}, false
}

func (n Config) GetByName(name string) (NetworkConfig, bool) {
	name = strings.ToLower(name)
	for k, v := range n {
		if strings.ToLower(k) == name {
			return v, true
		}
	}
	return NetworkConfig{}, false
}
