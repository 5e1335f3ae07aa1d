package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/dyike/WheelGo/config"
	"github.com/dyike/WheelGo/internal/display"
	"github.com/sirupsen/logrus"
)

// InteractiveSession handles interactive CLI sessions
type InteractiveSession struct {
	mu      sync.RWMutex
	config  *config.Config
	manager *config.Manager
	logger  *logrus.Logger
	out     io.Writer
}

// NewInteractiveSession creates a new interactive session. manager may be nil, in which
// case configuration changes on disk are not picked up.
func NewInteractiveSession(cfg *config.Config, manager *config.Manager, logger *logrus.Logger, out io.Writer) *InteractiveSession {
	return &InteractiveSession{
		config:  cfg,
		manager: manager,
		logger:  logger,
		out:     out,
	}
}

// Start begins the interactive session
func (s *InteractiveSession) Start(ctx context.Context) error {
	DisplayWelcomeBanner(s.out)

	if s.manager != nil {
		if err := s.manager.Watch(ctx, s.onConfigChange); err != nil {
			s.logger.WithError(err).Warn("config hot reload disabled")
		} else {
			display.DisplayInfo(s.out, "Watching "+s.manager.Path()+" for changes")
		}
	}

	return s.runMainLoop(ctx)
}

func (s *InteractiveSession) onConfigChange(change config.Change) {
	cfg := change.New
	s.mu.Lock()
	s.config = &cfg
	s.mu.Unlock()
	display.DisplayInfo(s.out, "Configuration reloaded ("+strings.Join(change.Keys, ", ")+"); the next backtest uses the new settings")
	if change.Has("data_source") {
		display.DisplayInfo(s.out, fmt.Sprintf("History now comes from %s instead of %s", change.New.DataSource, change.Old.DataSource))
	}
}

func (s *InteractiveSession) currentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := *s.config
	return &cfg
}

// runMainLoop runs the main interactive loop
func (s *InteractiveSession) runMainLoop(ctx context.Context) error {
	for {
		sel, err := s.collectSelections()
		if err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				fmt.Fprintln(s.out, "👋 Thank you for using WheelGo!")
				return nil
			}
			return err
		}

		confirmed, err := PromptForConfirmation(sel)
		if err != nil {
			return err
		}
		if confirmed {
			s.runBacktest(ctx, sel)
		}

		again, err := PromptForRestartOrExit()
		if err != nil || !again {
			fmt.Fprintln(s.out, "👋 Thank you for using WheelGo!")
			return nil
		}
		fmt.Fprintln(s.out)
	}
}

func (s *InteractiveSession) collectSelections() (UserSelections, error) {
	cfg := s.currentConfig()
	var sel UserSelections
	var err error

	if sel.Ticker, err = PromptForTicker(); err != nil {
		return sel, err
	}
	if sel.StrikePct, err = PromptForStrikePct(); err != nil {
		return sel, err
	}
	if sel.StartDate, sel.EndDate, err = PromptForDateRange(); err != nil {
		return sel, err
	}
	capital, err := PromptForCapital()
	if err != nil {
		return sel, err
	}
	if sel.StartingCapital, err = parseCapital(capital); err != nil {
		return sel, err
	}
	if sel.LotSize, err = PromptForLotSize(cfg.LotSize); err != nil {
		return sel, err
	}
	if cfg.OnlineTools {
		if sel.LiveQuotes, err = PromptForLiveQuotes(); err != nil {
			return sel, err
		}
	}
	return sel, nil
}

// runBacktest executes the backtest and reports failures without leaving the session
func (s *InteractiveSession) runBacktest(ctx context.Context, sel UserSelections) {
	session, err := NewBacktestSession(s.currentConfig(), s.logger)
	if err != nil {
		display.DisplayError(s.out, err)
		return
	}
	defer session.Close()

	fmt.Fprintf(s.out, "\n🔄 Running the wheel on %s via %s...\n", sel.Ticker, session.Source())
	res, err := session.Run(ctx, sel)
	if err != nil {
		display.DisplayError(s.out, fmt.Errorf("backtest failed: %w", err))
		return
	}

	display.NewResultsDisplay(s.out, res.Params.Ticker).DisplayBacktestResults(res, true)

	save, err := PromptForSave()
	if err != nil || !save {
		return
	}
	runID, err := session.Save(ctx, res)
	if err != nil {
		display.DisplayError(s.out, err)
		return
	}
	display.DisplaySuccess(s.out, "Saved as run "+runID)
}
