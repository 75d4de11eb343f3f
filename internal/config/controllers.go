package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/perpdebt/vault-engine/internal/fixedpoint"
	"github.com/perpdebt/vault-engine/internal/oracle"
)

// Controller holds the risk parameters the dashboard mirrors for one
// controller contract.
type Controller struct {
	Address            common.Address
	Name               string
	UnderlyingDecimals uint8
	MaxLTV             *uint256.Int // WAD
	ValuationPriceType oracle.PriceType
	Requirements       oracle.Requirements
}

// Registry maps controller addresses to their parameters.
type Registry map[common.Address]Controller

// Lookup returns the controller at addr.
func (r Registry) Lookup(addr common.Address) (Controller, bool) {
	c, ok := r[addr]
	return c, ok
}

type controllersFile struct {
	Controllers []controllerYAML `yaml:"controllers"`
}

type controllerYAML struct {
	Address            string   `yaml:"address"`
	Name               string   `yaml:"name"`
	UnderlyingDecimals *uint8   `yaml:"underlying_decimals"`
	MaxLTV             string   `yaml:"max_ltv"`
	ValuationPriceType string   `yaml:"valuation_price_type"`
	RequiredPriceTypes []string `yaml:"required_price_types"`
}

// LoadControllers reads the YAML controller registry from disk.
func LoadControllers(path string) (Registry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open controllers file: %w", err)
	}
	defer file.Close()

	var raw controllersFile
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode controllers file: %w", err)
	}
	return raw.registry()
}

// ParseControllers decodes a registry from YAML bytes.
func ParseControllers(data []byte) (Registry, error) {
	var raw controllersFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode controllers: %w", err)
	}
	return raw.registry()
}

func (f controllersFile) registry() (Registry, error) {
	reg := make(Registry, len(f.Controllers))
	var errs []error
	for i, raw := range f.Controllers {
		c, err := raw.controller()
		if err != nil {
			errs = append(errs, fmt.Errorf("controllers[%d]: %w", i, err))
			continue
		}
		if _, dup := reg[c.Address]; dup {
			errs = append(errs, fmt.Errorf("controllers[%d]: duplicate address %s", i, c.Address.Hex()))
			continue
		}
		reg[c.Address] = c
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}

func (raw controllerYAML) controller() (Controller, error) {
	addr := strings.TrimSpace(raw.Address)
	if !common.IsHexAddress(addr) {
		return Controller{}, fmt.Errorf("invalid address %q", raw.Address)
	}
	if raw.UnderlyingDecimals == nil {
		return Controller{}, errors.New("underlying_decimals is required")
	}
	if *raw.UnderlyingDecimals > 77 {
		return Controller{}, fmt.Errorf("underlying_decimals %d out of range", *raw.UnderlyingDecimals)
	}

	ltv, err := decimal.NewFromString(strings.TrimSpace(raw.MaxLTV))
	if err != nil {
		return Controller{}, fmt.Errorf("max_ltv %q: %w", raw.MaxLTV, err)
	}
	if !ltv.IsPositive() || ltv.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Controller{}, fmt.Errorf("max_ltv must be in (0, 1), got %s", ltv)
	}
	maxLTV, err := fixedpoint.FromDecimal(ltv, fixedpoint.Decimals)
	if err != nil {
		return Controller{}, fmt.Errorf("max_ltv: %w", err)
	}

	valuation := oracle.Lower
	if raw.ValuationPriceType != "" {
		if valuation, err = oracle.ParsePriceType(raw.ValuationPriceType); err != nil {
			return Controller{}, err
		}
	}

	types := []oracle.PriceType{valuation}
	for _, s := range raw.RequiredPriceTypes {
		pt, err := oracle.ParsePriceType(s)
		if err != nil {
			return Controller{}, err
		}
		types = append(types, pt)
	}

	return Controller{
		Address:            common.HexToAddress(addr),
		Name:               strings.TrimSpace(raw.Name),
		UnderlyingDecimals: *raw.UnderlyingDecimals,
		MaxLTV:             maxLTV,
		ValuationPriceType: valuation,
		Requirements:       oracle.NewRequirements(types...),
	}, nil
}
