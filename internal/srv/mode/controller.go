// Package mode decides between following the switches and cycling through
// every image after a period of inactivity.
package mode

import (
	"github.com/jypelle/artbox/apimodel"
	"github.com/jypelle/artbox/internal/srv/state"
	"github.com/sirupsen/logrus"
	"time"
)

// LabelSource tells where the LCD labels come from.
type LabelSource int

const (
	SWITCH_POSITIONS_LABELS LabelSource = iota
	IMAGE_COORDINATE_LABELS
)

type Reason int

const (
	NO_CHANGE Reason = iota
	STARTUP
	SWITCH_CHANGE
	SCREENSAVER_START
	SCREENSAVER_ADVANCE
)

func (r Reason) String() string {
	switch r {
	case STARTUP:
		return "startup"
	case SWITCH_CHANGE:
		return "switch change"
	case SCREENSAVER_START:
		return "screensaver start"
	case SCREENSAVER_ADVANCE:
		return "screensaver advance"
	default:
		return "none"
	}
}

// Output is what should be displayed after an update.
type Output struct {
	Mode        apimodel.Mode
	Coordinate  apimodel.Coordinate
	LabelSource LabelSource
	// Changed is set when the displayed coordinate or the mode changed
	Changed bool
	Reason  Reason
}

type Controller struct {
	inactivity time.Duration
	interval   time.Duration

	mode            apimodel.Mode
	lastInteractive apimodel.Coordinate
	lastAdvance     time.Time
	displayed       apimodel.Coordinate
	started         bool
}

func NewController(inactivity time.Duration, interval time.Duration) *Controller {
	return &Controller{
		inactivity: inactivity,
		interval:   interval,
		mode:       apimodel.INTERACTIVE_MODE,
	}
}

func (c *Controller) Mode() apimodel.Mode {
	return c.mode
}

func (c *Controller) LastInteractive() apimodel.Coordinate {
	return c.lastInteractive
}

func (c *Controller) Displayed() apimodel.Coordinate {
	return c.displayed
}

// Update consumes a switch state snapshot and returns what to display at now.
func (c *Controller) Update(snapshot state.Snapshot, now time.Time) Output {
	reason := NO_CHANGE
	if !c.started {
		c.started = true
		reason = STARTUP
	}

	switch {
	case snapshot.Changed && snapshot.Known:
		if c.mode == apimodel.SCREENSAVER_MODE {
			logrus.Infof("Switch moved, leaving screensaver mode")
		}
		c.mode = apimodel.INTERACTIVE_MODE
		c.lastInteractive = snapshot.Coordinate
		c.displayed = snapshot.Coordinate
		reason = SWITCH_CHANGE

	case c.mode == apimodel.INTERACTIVE_MODE:
		if now.Sub(snapshot.LastChanged) >= c.inactivity {
			logrus.Infof("No switch change for %v, entering screensaver mode", c.inactivity)
			c.mode = apimodel.SCREENSAVER_MODE
			c.displayed = c.lastInteractive.Next()
			c.lastAdvance = now
			reason = SCREENSAVER_START
		}

	case c.mode == apimodel.SCREENSAVER_MODE:
		elapsed := now.Sub(c.lastAdvance)
		if elapsed >= c.interval {
			c.displayed = c.displayed.Next()
			if elapsed >= 2*c.interval {
				// the loop lagged behind: restart the schedule rather than rushing
				c.lastAdvance = now
			} else {
				c.lastAdvance = c.lastAdvance.Add(c.interval)
			}
			reason = SCREENSAVER_ADVANCE
		}
	}

	output := Output{
		Mode:       c.mode,
		Coordinate: c.displayed,
		Changed:    reason != NO_CHANGE,
		Reason:     reason,
	}
	if c.mode == apimodel.SCREENSAVER_MODE {
		output.LabelSource = IMAGE_COORDINATE_LABELS
	}
	return output
}
