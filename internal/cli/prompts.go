package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/dyike/WheelGo/consts"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// PromptForTicker prompts the user to enter a stock ticker symbol
func PromptForTicker() (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Enter the stock ticker symbol (e.g., SPY, AAPL, MSFT):",
		Help:    "The underlying the wheel sells puts and calls on",
	}

	err := survey.AskOne(prompt, &ticker, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(strings.ToUpper(val.(string)))
		if len(str) == 0 {
			return fmt.Errorf("ticker symbol cannot be empty")
		}
		if len(str) > 10 {
			return fmt.Errorf("ticker symbol too long (max 10 characters)")
		}
		if !tickerPattern.MatchString(str) {
			return fmt.Errorf("invalid ticker format (use letters, numbers, dots, and hyphens only)")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(strings.ToUpper(ticker)), nil
}

// PromptForStrikePct prompts for the strike distance as a fraction of the Monday open
func PromptForStrikePct() (float64, error) {
	var choice string
	prompt := &survey.Select{
		Message: "Select the put strike as a fraction of Monday's open:",
		Help:    "Calls are struck symmetrically above the open (0.95 puts pair with 1.05 calls)",
		Options: []string{"0.90", "0.93", "0.95", "0.97", "0.98", "Custom"},
		Default: "0.95",
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return 0, err
	}
	if choice != "Custom" {
		return strconv.ParseFloat(choice, 64)
	}

	var custom string
	err := survey.AskOne(&survey.Input{Message: "Strike percentage (e.g. 0.96 or 96%):"}, &custom,
		survey.WithValidator(func(val interface{}) error {
			_, err := parseStrikePct(val.(string))
			return err
		}))
	if err != nil {
		return 0, err
	}
	return parseStrikePct(custom)
}

// PromptForDateRange prompts for the backtest start and end dates
func PromptForDateRange() (time.Time, time.Time, error) {
	today := time.Now()
	validDate := func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		parsed, err := time.Parse(consts.DateLayout, str)
		if err != nil {
			return fmt.Errorf("invalid date format, use YYYY-MM-DD")
		}
		if parsed.After(today) {
			return fmt.Errorf("date cannot be in the future")
		}
		return nil
	}

	var startStr, endStr string
	err := survey.AskOne(&survey.Input{
		Message: "Backtest start date (YYYY-MM-DD):",
		Default: today.AddDate(-1, 0, 0).Format(consts.DateLayout),
	}, &startStr, survey.WithValidator(validDate))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	err = survey.AskOne(&survey.Input{
		Message: "Backtest end date (YYYY-MM-DD):",
		Default: today.Format(consts.DateLayout),
	}, &endStr, survey.WithValidator(validDate))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start, _ := time.Parse(consts.DateLayout, strings.TrimSpace(startStr))
	end, _ := time.Parse(consts.DateLayout, strings.TrimSpace(endStr))
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s must be after start date %s", endStr, startStr)
	}
	return start, end, nil
}

// PromptForCapital prompts for the starting cash balance
func PromptForCapital() (string, error) {
	var capital string
	err := survey.AskOne(&survey.Input{
		Message: "Starting capital:",
		Default: DefaultCapital.String(),
	}, &capital, survey.WithValidator(func(val interface{}) error {
		_, err := parseCapital(val.(string))
		return err
	}))
	return capital, err
}

// PromptForLotSize prompts for shares per contract
func PromptForLotSize(def int) (int, error) {
	var lot string
	err := survey.AskOne(&survey.Input{
		Message: "Shares per contract:",
		Default: strconv.Itoa(def),
	}, &lot, survey.WithValidator(func(val interface{}) error {
		n, err := strconv.Atoi(strings.TrimSpace(val.(string)))
		if err != nil || n < 1 {
			return fmt.Errorf("lot size must be a positive whole number")
		}
		return nil
	}))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(lot))
}

// PromptForLiveQuotes asks whether to price sales from the current option chain
func PromptForLiveQuotes() (bool, error) {
	var live bool
	err := survey.AskOne(&survey.Confirm{
		Message: "Use live option quotes when available?",
		Help:    "Quotes come from the current chain; without them premiums are estimated with Black-Scholes",
		Default: false,
	}, &live)
	return live, err
}

// PromptForConfirmation prompts the user to confirm their selections
func PromptForConfirmation(selections UserSelections) (bool, error) {
	fmt.Println(renderSelections(selections))

	var confirmed bool
	prompt := &survey.Confirm{
		Message: "Proceed with this backtest?",
		Default: true,
	}

	err := survey.AskOne(prompt, &confirmed)
	return confirmed, err
}

// PromptForSave asks whether a finished run should be recorded in the run history
func PromptForSave() (bool, error) {
	var save bool
	err := survey.AskOne(&survey.Confirm{Message: "Save this run to history?", Default: true}, &save)
	return save, err
}

// PromptForRestartOrExit prompts user when a backtest completes
func PromptForRestartOrExit() (bool, error) {
	var choice string
	prompt := &survey.Select{
		Message: "Backtest completed! What would you like to do next?",
		Options: []string{
			"Run another backtest",
			"Exit WheelGo",
		},
		Default: "Exit WheelGo",
	}

	err := survey.AskOne(prompt, &choice)
	if err != nil {
		return false, err
	}

	return choice == "Run another backtest", nil
}
