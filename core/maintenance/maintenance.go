package maintenance

import (
	tmlog "github.com/tendermint/tendermint/libs/log"

	"github.com/meridian-chain/meridian-go-node/core/events"
	"github.com/meridian-chain/meridian-go-node/core/state"
	"github.com/meridian-chain/meridian-go-node/core/state/accounts"
	"github.com/meridian-chain/meridian-go-node/core/types"
)

// Config carries the well-known identifiers the engine needs. They are
// fixed at construction instead of being looked up through globals.
type Config struct {
	CoreAsset               types.AssetID
	WitnessAccount          types.AccountID
	CommitteeAccount        types.AccountID
	RelaxedCommitteeAccount types.AccountID
}

// Engine runs the periodic chain maintenance: vote tallying, elections,
// budget release, worker pay, fee-bucket distribution and buyback order
// placement, all as one atomic state transition.
type Engine struct {
	cfg    Config
	state  *state.State
	logger tmlog.Logger
}

func NewEngine(cfg Config, s *state.State, logger tmlog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		state:  s,
		logger: logger.With("module", "maintenance"),
	}
}

// Run performs one maintenance pass and commits it. Any error, including
// a conservation-check failure, rolls every mutation back and leaves the
// maintenance timestamp untouched, so the next attempt retries the same
// interval from the pre-pass state.
func (e *Engine) Run(now uint64) ([]byte, error) {
	if err := e.Perform(now); err != nil {
		e.state.Rollback()
		return nil, err
	}

	if err := e.state.Check(); err != nil {
		e.state.Rollback()
		return nil, err
	}

	hash, err := e.state.Commit()
	if err != nil {
		return nil, err
	}

	if eventsDB := e.state.Events(); eventsDB != nil {
		if err := eventsDB.CommitEvents(uint32(e.state.Height())); err != nil {
			return hash, err
		}
	}

	return hash, nil
}

// Perform mutates the state through one full maintenance interval without
// committing. All time comes from the block timestamp passed in.
func (e *Engine) Perform(now uint64) error {
	if e.state.App.ApplyPendingParams() {
		e.logger.Info("pending chain parameters applied", "time", now)
	}

	params := e.state.App.Params()
	if params.BlockInterval == 0 {
		return fatalf("block interval is zero")
	}
	if params.MaintenanceInterval == 0 {
		return fatalf("maintenance interval is zero")
	}

	next := e.state.App.NextMaintenanceTime()
	var newNext uint64
	if next == 0 {
		newNext = now + params.MaintenanceInterval
	} else {
		if now < next {
			return fatalf("maintenance at %d runs before schedule %d", now, next)
		}
		// Skip over any missed intervals so the new deadline is always in
		// the future.
		newNext = next + params.MaintenanceInterval*((now-next)/params.MaintenanceInterval+1)
	}
	if newNext <= now {
		return fatalf("computed next maintenance time %d is not past %d", newNext, now)
	}

	e.expireMemberships(now)

	tally := e.tallyVotes(now)
	e.electWitnesses(tally)
	e.electCommittee(tally)

	if err := e.processBudget(now, newNext, tally); err != nil {
		return err
	}

	if err := e.distributeFees(); err != nil {
		return err
	}

	e.processBuybacks()

	e.state.App.SetNextMaintenanceTime(newNext)
	e.state.App.ResetAccountsRegistered()

	e.logger.Info("maintenance performed",
		"time", now,
		"next", newNext,
		"witnesses", len(e.state.App.ActiveWitnesses()),
		"committee", len(e.state.App.ActiveCommittee()),
	)

	return nil
}

// expireMemberships drops annual members whose paid period has lapsed
// back to basic, recorded as an upgrade virtual operation.
func (e *Engine) expireMemberships(now uint64) {
	var expired []types.AccountID
	e.state.Accounts.Iterate(func(account *accounts.Model) bool {
		if account.GetMembership() == types.MembershipAnnual && account.GetMembershipExpiration() <= now {
			expired = append(expired, account.ID())
		}
		return false
	})

	for _, id := range expired {
		e.state.Accounts.SetMembership(id, types.MembershipBasic, 0)
		e.addEvent(&events.AccountUpgradeEvent{
			Account: uint64(id),
			From:    types.MembershipAnnual.String(),
			To:      types.MembershipBasic.String(),
		})
	}
}

func (e *Engine) addEvent(event events.Event) {
	if eventsDB := e.state.Events(); eventsDB != nil {
		eventsDB.AddEvent(event)
	}
}
