package srv

import (
	"fmt"
	"github.com/jypelle/artbox/apimodel"
	"github.com/jypelle/artbox/internal/images"
	"github.com/jypelle/artbox/internal/srv/config"
	"github.com/jypelle/artbox/internal/srv/device"
	"github.com/jypelle/artbox/internal/srv/event"
	"github.com/jypelle/artbox/internal/srv/imagecache"
	"github.com/jypelle/artbox/internal/srv/mode"
	"github.com/jypelle/artbox/internal/srv/state"
	"github.com/jypelle/artbox/internal/version"
	"github.com/sirupsen/logrus"
	"os"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"time"
)

type ServerApp struct {
	*config.ServerConfig

	i2cBus       i2c.BusCloser
	simulatedBus *device.SimulatedBus
	bus          *device.Bus

	switchState    *state.SwitchState
	switchesDevice *device.Switches
	lcdDevice      *device.Lcd
	displayDevice  *device.Display
	apiDevice      *device.Api
	publisher      device.Publisher

	imageStore     *images.FileStore
	imageCache     *imagecache.Cache
	modeController *mode.Controller
	labels         *config.Labels

	// owned by the control loop
	lastOutput mode.Output
	lastFrame  Frame
	frameShown bool

	now func() time.Time

	internalEventChannel chan event.InternalEvent

	controlLoopAskDone chan bool
	controlLoopDone    chan bool
}

// NewServerApp opens the hardware, or its simulation, described by serverConfig.
func NewServerApp(serverConfig *config.ServerConfig) (*ServerApp, error) {
	logrus.Debugf("Creation of %s server %s ...", version.AppName, version.AppVersion.String())

	var i2cBus i2c.BusCloser
	if serverConfig.SimulationMode {
		i2cBus = device.NewSimulatedBus(serverConfig.BusParam)
	} else {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("unable to initialize host: %w", err)
		}
		var err error
		i2cBus, err = i2creg.Open(serverConfig.BusParam.Name)
		if err != nil {
			return nil, fmt.Errorf("unable to open i2c bus: %w", err)
		}
	}

	var publisher device.Publisher = device.NopPublisher{}
	if serverConfig.MqttParam.Broker != "" {
		mqttPublisher, err := device.NewMqttPublisher(serverConfig.MqttParam)
		if err != nil {
			logrus.Warnf("Mqtt publisher disabled: %v", err)
		} else {
			publisher = mqttPublisher
		}
	}

	app := &ServerApp{ServerConfig: serverConfig}
	windowed := serverConfig.WindowedMode || serverConfig.SimulationMode
	displayDevice := device.NewDisplay(serverConfig.ScreenParam, windowed, app.keyHandler)

	err := app.setup(i2cBus, displayDevice, publisher)
	if err != nil {
		publisher.Close()
		i2cBus.Close()
		return nil, err
	}
	return app, nil
}

func (s *ServerApp) setup(i2cBus i2c.BusCloser, displayDevice *device.Display, publisher device.Publisher) error {
	s.imageStore = images.NewFileStore(s.ImagesFolder)
	if err := s.imageStore.CheckFolder(); err != nil {
		return err
	}
	if missing := s.imageStore.MissingSamples(); len(missing) > 0 {
		logrus.Warnf("Sample images not found in %s: %v", s.ImagesFolder, missing)
	}

	s.i2cBus = i2cBus
	if simulatedBus, ok := i2cBus.(*device.SimulatedBus); ok {
		s.simulatedBus = simulatedBus
	}
	s.bus = device.NewBus(i2cBus, s.BusParam.MuxAddress, s.BusParam.Settle(), s.BusParam.Timeout())

	s.now = time.Now
	s.switchState = state.NewSwitchState(s.now())
	s.switchesDevice = device.NewSwitches(s.bus, s.BusParam, s.switchState, s.TimingParam.PollPeriod(), s.TimingParam.JoinTimeout())
	if s.BusParam.Lcd.Enabled {
		s.lcdDevice = device.NewLcd(s.bus, s.BusParam.Lcd)
	}
	s.displayDevice = displayDevice
	if s.ApiParam.Enabled {
		s.apiDevice = device.NewApi(s.ServerConfig)
	}
	s.publisher = publisher

	s.imageCache = imagecache.New(s.imageStore, s.CacheCapacity)
	s.imageCache.OnEvict = func(c apimodel.Coordinate) {
		logrus.Debugf("Evict image %s from cache", c.Stem())
	}
	s.modeController = mode.NewController(s.TimingParam.Inactivity(), s.TimingParam.ScreensaverInterval())

	s.labels = config.FindLabels(s.LabelsFileCandidates())

	s.internalEventChannel = make(chan event.InternalEvent, 8)
	s.controlLoopAskDone = make(chan bool)
	s.controlLoopDone = make(chan bool)

	logrus.Debugln("Server created")
	return nil
}

func (s *ServerApp) Start() error {
	logrus.Printf("Starting %s server ...", version.AppName)

	logrus.Printf("Starting devices ...")

	// Start display device
	if err := s.displayDevice.Start(); err != nil {
		return fmt.Errorf("unable to start display: %w", err)
	}

	// Start lcd device
	if s.lcdDevice != nil {
		s.lcdDevice.Start()
	}

	// Start switches polling
	s.switchesDevice.Start()

	// Start control loop
	go s.controlLoop()

	// Start api device
	if s.apiDevice != nil {
		s.apiDevice.Start()
	}
	return nil
}

func (s *ServerApp) Stop() {
	s.shutdown()
	os.Exit(0)
}

func (s *ServerApp) shutdown() {
	logrus.Printf("Stopping %s server ...", version.AppName)

	// Stop api
	if s.apiDevice != nil {
		s.apiDevice.StopSendingEvent()
	}

	// Stop switches polling
	s.switchesDevice.StopSendingEvent()

	// Stop control loop
	logrus.Infof("Stop control loop")
	s.controlLoopAskDone <- true
	<-s.controlLoopDone

	// Stop lcd device
	if s.lcdDevice != nil {
		s.lcdDevice.Stop()
	}

	// Stop display device
	s.displayDevice.Stop()

	if err := s.publisher.Close(); err != nil {
		logrus.Warnf("Unable to close publisher: %v", err)
	}
	s.imageCache.Clear()

	if err := s.i2cBus.Close(); err != nil {
		logrus.Warnf("Unable to close i2c bus: %v", err)
	}

	logrus.Printf("Server stopped")
}
