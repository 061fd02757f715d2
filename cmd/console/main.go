package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/ems-console/admin"
	"github.com/jrsteele09/ems-console/apiclient"
	"github.com/jrsteele09/ems-console/apitest"
	"github.com/jrsteele09/ems-console/internal/config"
	"github.com/jrsteele09/ems-console/sessions"
	"github.com/jrsteele09/ems-console/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	envFile    = flag.String("env", ".env", "dotenv file to load before reading configuration")
	configFile = flag.String("config", "", "optional YAML file with configuration values")
	demo       = flag.Bool("demo", false, "start an in-process demo backend and connect to it")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Console stopped")
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	if err := config.Load(*envFile); err != nil {
		return err
	}
	if *configFile != "" {
		if err := config.LoadFile(*configFile); err != nil {
			return err
		}
	}
	c := config.New()
	setupLogging(c.GetLogLevel())
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var clientCfg config.ClientConfig = c
	var indicator sessions.Indicator = sessions.NewFileIndicator(c.GetDataFolder())
	if *demo {
		srv, err := apitest.New()
		if err != nil {
			return fmt.Errorf("apitest.New: %w", err)
		}
		defer srv.Close()
		clientCfg = config.Static{
			BaseURL:      srv.URL,
			Timeout:      c.GetRequestTimeout(),
			LoginPath:    c.GetLoginPath(),
			RegisterPath: c.GetRegisterPath(),
			RefreshPath:  c.GetRefreshPath(),
			UserMePath:   c.GetUserMePath(),
		}
		indicator = sessions.NewMemoryIndicator(false)
		log.Info().Str("url", srv.URL).Str("email", apitest.AdminEmail).Str("password", apitest.AdminPassword).
			Msg("Demo backend running")
	}

	client, err := apiclient.New(clientCfg, token.NewStore())
	if err != nil {
		return err
	}
	manager := sessions.New(client, indicator, sessions.WithUserMePath(clientCfg.GetUserMePath()))
	defer manager.Close()

	bootCtx, cancel := context.WithTimeout(ctx, clientCfg.GetRequestTimeout()+5*time.Second)
	snap := manager.Bootstrap(bootCtx)
	cancel()

	con := newConsole(client, manager, admin.New(client), os.Stdout)
	con.printSession(snap)
	return con.loop(ctx, bufio.NewScanner(os.Stdin))
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
