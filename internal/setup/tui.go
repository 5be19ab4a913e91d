// Package setup holds the interactive terminal forms: adding a transaction
// and generating a config file.
package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/hodlbook/config"
	"github.com/vadiminshakov/hodlbook/internal/domain"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// ErrCancelled is returned when the user declines the confirmation.
var ErrCancelled = errors.New("cancelled by user")

// TransactionInput holds the raw form values.
type TransactionInput struct {
	Asset     string
	Action    string
	Quantity  string
	UnitPrice string
	Date      string
}

// Transaction validates the input and builds a transaction. An empty date
// means today.
func (in TransactionInput) Transaction() (domain.Transaction, error) {
	action, err := domain.ParseAction(in.Action)
	if err != nil {
		return domain.Transaction{}, err
	}
	quantity, err := parsePositive(in.Quantity)
	if err != nil {
		return domain.Transaction{}, errors.Wrap(domain.ErrInvalidQuantity, err.Error())
	}
	price, err := parseNonNegative(in.UnitPrice)
	if err != nil {
		return domain.Transaction{}, errors.Wrap(domain.ErrInvalidPrice, err.Error())
	}

	var date domain.Date
	if strings.TrimSpace(in.Date) != "" {
		if date, err = domain.ParseDate(in.Date); err != nil {
			return domain.Transaction{}, err
		}
	}

	return domain.NewTransaction(in.Asset, action, quantity, price, date)
}

// RunTransactionForm asks for a transaction, prefilled with in.
func RunTransactionForm(in TransactionInput) (domain.Transaction, error) {
	if in.Action == "" {
		in.Action = domain.ActionBuy.String()
	}
	if in.Date == "" {
		in.Date = domain.Today().String()
	}

	fmt.Println(headerStyle.Render("NEW TRANSACTION"))

	confirm := true
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Asset").
				Description("Coin id, e.g. bitcoin").
				Value(&in.Asset).
				Validate(validateAsset),
			huh.NewSelect[string]().
				Title("Action").
				Options(
					huh.NewOption("Buy", domain.ActionBuy.String()),
					huh.NewOption("Sell", domain.ActionSell.String()),
				).
				Value(&in.Action),
			huh.NewInput().
				Title("Quantity").
				Value(&in.Quantity).
				Validate(validateQuantity),
			huh.NewInput().
				Title("Unit price").
				Description("Price per coin in the quote currency").
				Value(&in.UnitPrice).
				Validate(validatePrice),
			huh.NewInput().
				Title("Date").
				Description("YYYY-MM-DD").
				Value(&in.Date).
				Validate(validateDate),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save transaction?").
				Affirmative("Save").
				Negative("Discard").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return domain.Transaction{}, err
	}
	if !confirm {
		return domain.Transaction{}, ErrCancelled
	}

	return in.Transaction()
}

// RunConfigWizard walks through the main settings and writes them as YAML
// to path.
func RunConfigWizard(path string) error {
	var (
		provider    = config.ProviderCoinGecko
		backend     = config.BackendJSON
		historyDays = strconv.Itoa(config.DefaultHistoryDays)
		interval    = config.DefaultRefreshInterval
		listenAddr  = config.DefaultListenAddr
		confirm     bool
	)

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("HODLBOOK CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Track what you hold and what it cost you.\n"))

	fmt.Println(stepStyle.Render("STEP 1: PRICES & STORAGE"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Price provider").
				Options(
					huh.NewOption("CoinGecko", config.ProviderCoinGecko),
					huh.NewOption("Binance", config.ProviderBinance),
					huh.NewOption("Bybit", config.ProviderBybit),
				).
				Value(&provider),
			huh.NewSelect[string]().
				Title("Transaction store").
				Options(
					huh.NewOption("JSON file", config.BackendJSON),
					huh.NewOption("Write-ahead log", config.BackendWAL),
				).
				Value(&backend),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Println(stepStyle.Render("STEP 2: REFRESH"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("History days").
				Description("Trailing window of the value chart (1-365)").
				Value(&historyDays).
				Validate(validateHistoryDays),
			huh.NewInput().
				Title("Refresh schedule").
				Description("Cron spec, e.g. @every 1m").
				Value(&interval),
			huh.NewInput().
				Title("Listen address").
				Value(&listenAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	days, _ := strconv.Atoi(historyDays)
	var tmp config.ConfigTmp
	tmp.Store.Backend = backend
	tmp.Provider = provider
	tmp.HistoryDays = days
	tmp.RefreshInterval = interval
	tmp.ListenAddr = listenAddr

	data, err := yaml.Marshal(tmp)
	if err != nil {
		return errors.Wrap(err, "failed to generate yaml")
	}

	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(string(data)))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration to " + path + "?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return ErrCancelled
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to save config file")
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render("✓ Configuration saved to " + path))
	return nil
}

func validateAsset(s string) error {
	if domain.NormalizeAsset(s) == "" {
		return errors.New("asset cannot be empty")
	}
	return nil
}

func validateQuantity(s string) error {
	_, err := parsePositive(s)
	return err
}

func validatePrice(s string) error {
	_, err := parseNonNegative(s)
	return err
}

func validateDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := domain.ParseDate(s)
	if err != nil {
		return errors.New("must be a date like 2024-01-31")
	}
	return nil
}

func validateHistoryDays(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("must be a whole number")
	}
	if n < 1 || n > 365 {
		return errors.New("must be between 1 and 365")
	}
	return nil
}

func parsePositive(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.New("must be a valid number")
	}
	if !d.IsPositive() {
		return 0, errors.New("must be greater than 0")
	}
	f, _ := d.Float64()
	return f, nil
}

func parseNonNegative(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.New("must be a valid number")
	}
	if d.IsNegative() {
		return 0, errors.New("must not be negative")
	}
	f, _ := d.Float64()
	return f, nil
}
