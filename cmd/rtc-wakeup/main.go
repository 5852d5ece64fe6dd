// Command rtc-wakeup puts the board into deep sleep or hibernate on a button
// press and wakes it again with the periodic RTC alarm.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/rtc-wakeup/internal/button"
	"github.com/sweeney/rtc-wakeup/internal/config"
	"github.com/sweeney/rtc-wakeup/internal/controller"
	"github.com/sweeney/rtc-wakeup/internal/diag"
	"github.com/sweeney/rtc-wakeup/internal/logic"
	"github.com/sweeney/rtc-wakeup/internal/mqtt"
	"github.com/sweeney/rtc-wakeup/internal/power"
	"github.com/sweeney/rtc-wakeup/internal/rtc"
	"github.com/sweeney/rtc-wakeup/internal/status"
)

const clientID = "rtc-wakeup"

func main() {
	configPath := flag.String("config", "/etc/rtc-wakeup.yaml", "YAML config file (missing file uses defaults)")
	broker := flag.String("broker", "", `MQTT broker address, overrides config ("off" disables)`)
	rtcDevice := flag.String("rtc", "", "RTC character device, overrides config")
	chip := flag.String("chip", "", "GPIO chip of the user button, overrides config")
	pin := flag.Int("pin", -1, "GPIO line of the user button, overrides config")
	printTime := flag.Bool("print-time", false, "Print the RTC date/time and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	applyFlags(&cfg, *broker, *rtcDevice, *chip, *pin)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	if err := run(cfg, *printTime); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyFlags lays non-empty command-line values over the loaded config.
func applyFlags(cfg *config.Config, broker, rtcDevice, chip string, pin int) {
	switch broker {
	case "":
	case "off":
		cfg.Broker = ""
	default:
		cfg.Broker = broker
	}
	if rtcDevice != "" {
		cfg.RTCDevice = rtcDevice
	}
	if chip != "" {
		cfg.GPIOChip = chip
	}
	if pin >= 0 {
		cfg.ButtonPin = pin
	}
}

func run(cfg config.Config, printTime bool) error {
	dev, err := rtc.OpenDevRTC(cfg.RTCDevice)
	if err != nil {
		return &controller.FatalError{Stage: controller.StageBoard, Err: err}
	}
	defer dev.Close()

	// Print time mode
	if printTime {
		dt, err := dev.DateTime()
		if err != nil {
			return fmt.Errorf("read rtc: %w", err)
		}
		fmt.Println(dt)
		return nil
	}

	btn, err := button.NewRealReader(cfg.GPIOChip, cfg.ButtonPin)
	if err != nil {
		return &controller.FatalError{Stage: controller.StageBoard, Err: err}
	}
	defer btn.Close()

	pm, err := power.NewSysfs(power.DefaultSysfsPaths())
	if err != nil {
		return &controller.FatalError{Stage: controller.StageBoard, Err: err}
	}

	// Telemetry is optional; the controller runs without a broker.
	var publisher mqtt.Publisher
	if cfg.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.Broker, clientID)
		if err != nil {
			log.Printf("mqtt disabled: %v", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	ctrl := newController(cfg, dev, pm, btn, publisher, tracker, os.Stdout, time.Sleep)

	log.Printf("started: rtc=%s button=%s/%d channel=%d broker=%q", cfg.RTCDevice, cfg.GPIOChip, cfg.ButtonPin, cfg.AlarmChannel, cfg.Broker)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runController(ctrl, sigCh)
}

// newController wires the controller to its devices. sleep backs every
// busy-wait: press sampling, retry backoff and the pre-sleep settle.
func newController(cfg config.Config, dev rtc.Peripheral, pm power.Manager, btn button.Reader, publisher mqtt.Publisher, tracker *status.Tracker, w io.Writer, sleep func(time.Duration)) *controller.Controller {
	retry := rtc.Retrier{Attempts: cfg.Attempts, Delay: cfg.RetryDelay, Sleep: sleep}
	return controller.New(controller.Options{
		RTC:        dev,
		Power:      pm,
		Classifier: logic.NewClassifier(btn.Pressed, sleep, cfg.Thresholds),
		Scheduler:  rtc.NewScheduler(dev, cfg.Alarm, cfg.AlarmChannel, retry),
		Retry:      retry,
		Log:        diag.New(w, dev),
		Sleep:      sleep,
		Start:      cfg.Start,
		Settle:     cfg.SettleDelay,
		Publisher:  publisher,
		Tracker:    tracker,
	})
}

// runController runs ctrl until a signal arrives or a fatal error occurs.
// A fatal error halts the controller and is returned for the caller to exit on.
func runController(ctrl *controller.Controller, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan os.Signal, 1)
	go func() {
		select {
		case s := <-sig:
			got <- s
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := ctrl.Run(ctx); err != nil {
		if controller.IsFatal(err) {
			ctrl.Halt(err)
		}
		return err
	}

	s := <-got
	log.Printf("received %v, shutting down", s)
	ctrl.Shutdown(signalName(s))
	return nil
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		Broker:       cfg.Broker,
		RTCDevice:    cfg.RTCDevice,
		ButtonPin:    cfg.ButtonPin,
		AlarmChannel: int(cfg.AlarmChannel),
		Attempts:     cfg.Attempts,
		RetryDelayMs: cfg.RetryDelay.Milliseconds(),
		SettleMs:     cfg.SettleDelay.Milliseconds(),
	}
}
