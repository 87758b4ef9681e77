// Package termsim provides an in-process termapi.Terminal: a paper trading
// account driven entirely by an instrument catalog, for demos, drills and
// tests that need a full order lifecycle without a broker.
package termsim

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tradegate/internal/termapi"
)

// Catalog defines the account and the instruments a simulated session
// serves.
type Catalog struct {
	Account     AccountConfig      `yaml:"account"`
	Instruments []InstrumentConfig `yaml:"instruments"`
}

// AccountConfig seeds the simulated account.
type AccountConfig struct {
	Login    int64   `yaml:"login"`
	Password string  `yaml:"password"`
	Server   string  `yaml:"server"`
	Name     string  `yaml:"name"`
	Currency string  `yaml:"currency"`
	Balance  float64 `yaml:"balance"`
	Leverage int     `yaml:"leverage"`
}

// InstrumentConfig describes one tradable instrument, including its seed
// quote.
type InstrumentConfig struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Digits       int      `yaml:"digits"`
	Point        float64  `yaml:"point"`
	ContractSize float64  `yaml:"contract_size"`
	VolumeMin    float64  `yaml:"volume_min"`
	VolumeMax    float64  `yaml:"volume_max"`
	VolumeStep   float64  `yaml:"volume_step"`
	StopsLevel   int      `yaml:"stops_level"`
	TradeMode    string   `yaml:"trade_mode"` // full, disabled, long_only, short_only, close_only
	Filling      []string `yaml:"filling"`    // fok, ioc
	Bid          float64  `yaml:"bid"`
	Ask          float64  `yaml:"ask"`
}

// LoadCatalog reads and validates a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return &cat, nil
}

// DefaultCatalog returns a small built-in catalog: a demo account with a
// metal, a major pair and a yen pair.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Account: AccountConfig{
			Login:    5500123,
			Server:   "PaperTrade-Demo",
			Name:     "Paper Trader",
			Currency: "USD",
			Balance:  10000,
			Leverage: 100,
		},
		Instruments: []InstrumentConfig{
			{
				Name: "XAUUSD", Description: "Gold vs US Dollar",
				Digits: 2, Point: 0.01, ContractSize: 100,
				VolumeMin: 0.01, VolumeMax: 100, VolumeStep: 0.01, StopsLevel: 30,
				TradeMode: "full", Filling: []string{"fok", "ioc"},
				Bid: 2399.80, Ask: 2400.00,
			},
			{
				Name: "EURUSD", Description: "Euro vs US Dollar",
				Digits: 5, Point: 0.00001, ContractSize: 100000,
				VolumeMin: 0.01, VolumeMax: 200, VolumeStep: 0.01, StopsLevel: 10,
				TradeMode: "full", Filling: []string{"ioc"},
				Bid: 1.08421, Ask: 1.08433,
			},
			{
				Name: "USDJPY", Description: "US Dollar vs Japanese Yen",
				Digits: 3, Point: 0.001, ContractSize: 100000,
				VolumeMin: 0.01, VolumeMax: 200, VolumeStep: 0.01, StopsLevel: 10,
				TradeMode: "full", Filling: []string{"ioc"},
				Bid: 147.112, Ask: 147.125,
			},
		},
	}
}

// Validate checks the catalog for holes that would make the session
// misbehave later.
func (c *Catalog) Validate() error {
	var errs []string

	if c.Account.Balance < 0 {
		errs = append(errs, "account balance cannot be negative")
	}
	if c.Account.Leverage < 0 {
		errs = append(errs, "account leverage cannot be negative")
	}
	if len(c.Instruments) == 0 {
		errs = append(errs, "at least one instrument is required")
	}

	seen := make(map[string]bool, len(c.Instruments))
	for i, inst := range c.Instruments {
		if inst.Name == "" {
			errs = append(errs, fmt.Sprintf("instrument %d has no name", i))
			continue
		}
		if seen[inst.Name] {
			errs = append(errs, fmt.Sprintf("instrument %s is defined twice", inst.Name))
		}
		seen[inst.Name] = true

		if inst.Digits < 0 {
			errs = append(errs, fmt.Sprintf("instrument %s: digits cannot be negative", inst.Name))
		}
		if inst.Point <= 0 {
			errs = append(errs, fmt.Sprintf("instrument %s: point must be positive", inst.Name))
		}
		if inst.ContractSize <= 0 {
			errs = append(errs, fmt.Sprintf("instrument %s: contract_size must be positive", inst.Name))
		}
		if inst.VolumeMin <= 0 || inst.VolumeMax < inst.VolumeMin || inst.VolumeStep <= 0 {
			errs = append(errs, fmt.Sprintf("instrument %s: volume bounds are inconsistent", inst.Name))
		}
		if _, err := parseTradeMode(inst.TradeMode); err != nil {
			errs = append(errs, fmt.Sprintf("instrument %s: %v", inst.Name, err))
		}
		if _, err := parseFillingMask(inst.Filling); err != nil {
			errs = append(errs, fmt.Sprintf("instrument %s: %v", inst.Name, err))
		}
		if inst.Bid < 0 || inst.Ask < 0 || (inst.Ask > 0 && inst.Bid > inst.Ask) {
			errs = append(errs, fmt.Sprintf("instrument %s: seed quote is inconsistent", inst.Name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func parseTradeMode(mode string) (termapi.TradeMode, error) {
	switch strings.ToLower(mode) {
	case "", "full":
		return termapi.TradeModeFull, nil
	case "disabled":
		return termapi.TradeModeDisabled, nil
	case "long_only":
		return termapi.TradeModeLongOnly, nil
	case "short_only":
		return termapi.TradeModeShortOnly, nil
	case "close_only":
		return termapi.TradeModeCloseOnly, nil
	default:
		return 0, fmt.Errorf("unknown trade_mode %q", mode)
	}
}

func parseFillingMask(filling []string) (int, error) {
	if len(filling) == 0 {
		return termapi.SymbolFillingIOC, nil
	}
	mask := 0
	for _, f := range filling {
		switch strings.ToLower(f) {
		case "fok":
			mask |= termapi.SymbolFillingFOK
		case "ioc":
			mask |= termapi.SymbolFillingIOC
		default:
			return 0, fmt.Errorf("unknown filling capability %q", f)
		}
	}
	return mask, nil
}

// spec builds the wire-level specification for one instrument. The catalog
// must already be validated.
func (i *InstrumentConfig) spec() termapi.SymbolSpec {
	mode, _ := parseTradeMode(i.TradeMode)
	mask, _ := parseFillingMask(i.Filling)
	return termapi.SymbolSpec{
		Name:         i.Name,
		Description:  i.Description,
		Digits:       i.Digits,
		Point:        i.Point,
		ContractSize: i.ContractSize,
		VolumeMin:    i.VolumeMin,
		VolumeMax:    i.VolumeMax,
		VolumeStep:   i.VolumeStep,
		StopsLevel:   i.StopsLevel,
		TradeMode:    mode,
		FillingMask:  mask,
	}
}
