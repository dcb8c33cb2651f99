package srv

import (
	"github.com/jypelle/artbox/apimodel"
	"github.com/jypelle/artbox/internal/srv/device"
	"github.com/jypelle/artbox/internal/srv/event"
	"github.com/sirupsen/logrus"
	"strings"
	"syscall"
	"time"
)

// Keyboard rows driving the simulated switches, one key per position.
var switchKeys = [apimodel.SwitchCount]string{"QWERTY", "ASDFGH", "ZXCVBN"}

// Keys turning a simulated switch one detent further.
var turnKeys = [apimodel.SwitchCount]string{"1", "2", "3"}

func (s *ServerApp) controlLoop() {
	ticker := time.NewTicker(s.TimingParam.FramePeriod())
	defer ticker.Stop()

	for loop := true; loop; {
		select {
		case <-s.controlLoopAskDone:
			loop = false
		case <-ticker.C:
			s.frame(s.now())
		case ev := <-s.apiEventChannel():
			s.handleApiEvent(ev)
		case ev := <-s.internalEventChannel:
			s.handleInternalEvent(ev)
		}
	}
	s.controlLoopDone <- true
}

// frame runs one control loop iteration: read the switches, decide what to
// show, fetch it and hand it to the sinks.
func (s *ServerApp) frame(now time.Time) {
	snapshot := s.switchState.Consume()
	output := s.modeController.Update(snapshot, now)
	s.lastOutput = output

	img, err := s.imageCache.GetOrLoad(output.Coordinate)
	frame := NewFrame(output, img, err)
	frame.Overlay = s.labelLines(output.Coordinate.Digits())
	s.refreshDisplay(frame)

	if !output.Changed {
		return
	}

	logrus.Infof("Display %s (%s, %s)", output.Coordinate.Stem(), output.Mode, output.Reason)
	if err != nil {
		logrus.Warnf("Unable to display %s: %v", output.Coordinate.Filename(), err)
	}
	s.refreshLcd(output)

	ev := apimodel.DisplayEvent{
		Timestamp:  now.UTC().Format(time.RFC3339),
		Mode:       output.Mode.String(),
		Reason:     output.Reason.String(),
		Coordinate: output.Coordinate,
		Image:      output.Coordinate.Filename(),
		Error:      frame.Err,
	}
	if err := s.publisher.Publish(ev); err != nil {
		logrus.Warnf("Unable to publish display event: %v", err)
	}
}

func (s *ServerApp) apiEventChannel() chan event.ApiEvent {
	if s.apiDevice == nil {
		return nil
	}
	return s.apiDevice.EventChannel()
}

func (s *ServerApp) handleApiEvent(ev event.ApiEvent) {
	switch data := ev.Data.(type) {
	case event.ApiEventStatusData:
		*data.Status = s.status()
		ev.Result <- nil
	case event.ApiEventSwitchesData:
		ev.Result <- s.setSimulatedSwitches(data.Positions)
	default:
		ev.Result <- &apimodel.WrongParametersErrorMessage
	}
}

func (s *ServerApp) handleInternalEvent(ev event.InternalEvent) {
	switch data := ev.Data.(type) {
	case event.InternalEventKeyData:
		if data.Name == device.KEY_ESCAPE {
			logrus.Infof("Escape pressed, stopping")
			syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
			return
		}
		if s.simulatedBus == nil {
			return
		}
		if switchIndex, ok := keyTurn(data.Name); ok {
			if err := s.simulatedBus.Turn(switchIndex, 1); err != nil {
				logrus.Warnf("Unable to turn simulated switch: %v", err)
			}
			return
		}
		switchIndex, position, ok := keyPosition(data.Name)
		if !ok {
			return
		}
		if err := s.simulatedBus.SetPosition(switchIndex, position); err != nil {
			logrus.Warnf("Unable to set simulated switch: %v", err)
		}
	}
}

// keyHandler runs on the window goroutine and must never block it.
func (s *ServerApp) keyHandler(name string) {
	select {
	case s.internalEventChannel <- event.InternalEvent{Data: event.InternalEventKeyData{Name: name}}:
	default:
		logrus.Debugf("Key %s dropped", name)
	}
}

func keyPosition(name string) (int, apimodel.Position, bool) {
	name = strings.ToUpper(name)
	if len(name) != 1 {
		return 0, apimodel.UnknownPosition, false
	}
	for i, row := range switchKeys {
		if p := strings.Index(row, name); p >= 0 {
			return i, apimodel.Position(p + 1), true
		}
	}
	return 0, apimodel.UnknownPosition, false
}

func keyTurn(name string) (int, bool) {
	for i, key := range turnKeys {
		if name == key {
			return i, true
		}
	}
	return 0, false
}

func (s *ServerApp) setSimulatedSwitches(positions [apimodel.SwitchCount]apimodel.Position) error {
	if s.simulatedBus == nil {
		return &apimodel.SimulationOnlyErrorMessage
	}
	for i, p := range positions {
		if err := s.simulatedBus.SetPosition(i, p); err != nil {
			return &apimodel.WrongPositionErrorMessage
		}
	}
	return nil
}

func (s *ServerApp) status() apimodel.Status {
	snapshot := s.switchState.Snapshot()
	stats := s.imageCache.Stats()
	displayed := s.modeController.Displayed()
	_, cached := s.imageCache.Peek(displayed)

	keys := s.imageCache.Keys()
	cachedImages := make([]string, len(keys))
	for i, key := range keys {
		cachedImages[i] = key.Filename()
	}

	return apimodel.Status{
		Mode:            s.modeController.Mode().String(),
		Coordinate:      displayed,
		LastInteractive: s.modeController.LastInteractive(),
		Image:           displayed.Filename(),
		ImageCached:     cached,
		ImageError:      s.lastFrame.Err,
		SwitchesKnown:   snapshot.Known,
		LastChange:      snapshot.LastChanged.UTC().Format(time.RFC3339),
		Cache: apimodel.CacheStatus{
			Length:     s.imageCache.Len(),
			Capacity:   s.imageCache.Capacity(),
			Hits:       stats.Hits,
			Misses:     stats.Misses,
			Evictions:  stats.Evictions,
			LoadErrors: stats.LoadErrors,
			Images:     cachedImages,
		},
	}
}
