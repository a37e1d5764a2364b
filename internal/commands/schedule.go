package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"daysched/internal/exitcode"
	"daysched/internal/schedule"
	"daysched/internal/service"
)

// newController builds a store and controller over env's service.
func newController(env *Env) *schedule.Controller {
	store := schedule.NewStore(env.Service,
		schedule.WithTimeout(env.Config.Timeout()),
		schedule.WithLogger(env.logger()),
	)
	return schedule.NewController(store,
		schedule.WithClock(env.Config.Now),
		schedule.WithControllerLogger(env.logger()),
	)
}

// fail reports err and returns its exit code.
func fail(errOut io.Writer, err error) int {
	code := exitcode.FromError(err)
	switch code {
	case exitcode.AuthError:
		if errors.Is(err, service.ErrMissingSession) {
			fmt.Fprintln(errOut, "error: not logged in (run: daysched login)")
		} else {
			fmt.Fprintf(errOut, "error: auth error: %v (run: daysched login)\n", err)
		}
	case exitcode.BackendError:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return code
}

// dateFlags selects the view a command works on.
type dateFlags struct {
	previous bool
	date     string
}

func (d *dateFlags) register(fs *flag.FlagSet) {
	fs.BoolVar(&d.previous, "previous", false, "")
	fs.BoolVar(&d.previous, "p", false, "")
	fs.StringVar(&d.date, "date", "", "")
	fs.StringVar(&d.date, "d", "", "")
}

func (d *dateFlags) selection() (schedule.Selection, error) {
	switch {
	case d.previous && d.date != "":
		return schedule.Selection{}, errors.New("cannot use both --previous and --date")
	case d.previous:
		return schedule.Previous(), nil
	case d.date != "":
		return schedule.Specific(d.date), nil
	default:
		return schedule.Today(), nil
	}
}

// loadView selects the view from flags and loads it. A failed load is
// returned as an error; callers render or act on the returned view.
func loadView(ctx context.Context, env *Env, ctrl *schedule.Controller, d *dateFlags) (schedule.View, error) {
	sel, err := d.selection()
	if err != nil {
		return schedule.View{}, err
	}
	if err := ctrl.Select(ctx, env.Session, sel); err != nil {
		return schedule.View{}, err
	}
	return ctrl.Snapshot(), nil
}
