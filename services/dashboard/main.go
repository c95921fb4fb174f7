package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/iulianpascalau/metrics-dashboard/commonGo"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/config"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/factory"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/urfave/cli"
)

const (
	defaultLogsPath      = "logs"
	logFilePrefix        = "dashboard"
	logFileLifeSpanInSec = 86400 // 24h
	logFileLifeSpanInMB  = 1024  // 1GB
	envFile              = ".env"
	envUsername          = "DASHBOARD_USERNAME"
	envPassword          = "DASHBOARD_PASSWORD"
)

// appVersion should be populated at build time using ldflags
// Usage examples:
// Linux/macOS:
//
//	go build -v -ldflags="-X main.appVersion=$(git describe --all | cut -c7-32)
var appVersion = "undefined"
var fileLogging commonGo.FileLoggingHandler

var (
	dashboardHelpTemplate = `NAME:
   {{.Name}} - {{.Usage}}
USAGE:
   {{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}
   {{if len .Authors}}
AUTHOR:
   {{range .Authors}}{{ . }}{{end}}
   {{end}}{{if .Commands}}
GLOBAL OPTIONS:
   {{range .VisibleFlags}}{{.}}
   {{end}}
VERSION:
   {{.Version}}
   {{end}}
`

	log = logger.GetOrCreate("main")

	// logLevel defines the logger level
	logLevel = cli.StringFlag{
		Name: "log-level",
		Usage: "This flag specifies the logger `level(s)`. It can contain multiple comma-separated value. For example" +
			", if set to *:INFO the logs for all packages will have the INFO level. However, if set to *:INFO,controller:DEBUG" +
			" the logs for all packages will have the INFO level, excepting the controller package which will receive a DEBUG" +
			" log level.",
		Value: "*:" + logger.LogInfo.String(),
	}
	// logFile is used when the log output needs to be logged in a file
	logSaveFile = cli.BoolFlag{
		Name:  "log-save",
		Usage: "Boolean option for enabling log saving. If set, it will automatically save all the logs into a file.",
	}
	// workingDirectory defines a flag for the path for the working directory.
	workingDirectory = cli.StringFlag{
		Name:  "working-directory",
		Usage: "This flag specifies the `directory` where the dashboard will store the database and logs.",
		Value: "",
	}
	// configFile defines the path of the TOML configuration
	configFile = cli.StringFlag{
		Name:  "config",
		Usage: "The `path` of the config.toml file.",
		Value: "./config.toml",
	}
	// sqlitePath defines the path of the dashboard database
	sqlitePath = cli.StringFlag{
		Name:  "sqlite-path",
		Usage: "The `path` of the sqlite database holding the last selection and the refresh history.",
		Value: "db/dashboard.db",
	}
)

func main() {
	app := cli.NewApp()
	cli.AppHelpTemplate = dashboardHelpTemplate
	app.Name = "Metrics dashboard service"
	app.Version = fmt.Sprintf("%s/%s/%s-%s", appVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	app.Usage = "This is the entry point for starting the dashboard that charts the series served by a metrics query service"
	app.Flags = []cli.Flag{
		logLevel,
		logSaveFile,
		workingDirectory,
		configFile,
		sqlitePath,
	}
	app.Authors = []cli.Author{
		{
			Name:  "Iulian Pascalau",
			Email: "iulian.pascalau@gmail.com",
		},
	}

	app.Action = run

	defer func() {
		if !check.IfNil(fileLogging) {
			_ = fileLogging.Close()
		}
	}()

	err := app.Run(os.Args)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	saveLogFile := ctx.GlobalBool(logSaveFile.Name)
	workingDir := ctx.GlobalString(workingDirectory.Name)

	err := logger.SetLogLevel(ctx.GlobalString(logLevel.Name))
	if err != nil {
		return err
	}

	fileLogging, err = commonGo.AttachFileLogger(log, defaultLogsPath, logFilePrefix, saveLogFile, workingDir)
	if err != nil {
		return err
	}

	if !check.IfNil(fileLogging) {
		timeLogLifeSpan := time.Second * time.Duration(logFileLifeSpanInSec)
		sizeLogLifeSpanInMB := uint64(logFileLifeSpanInMB)
		err = fileLogging.ChangeFileLifeSpan(timeLogLifeSpan, sizeLogLifeSpanInMB)
		if err != nil {
			return err
		}
	}

	log.Info("Starting dashboard service", "version", appVersion, "pid", os.Getpid())

	username, password, err := readCredentials(filepath.Join(workingDir, envFile))
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(ctx.GlobalString(configFile.Name))
	if err != nil {
		return err
	}

	dbPath := ctx.GlobalString(sqlitePath.Name)
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(workingDir, dbPath)
	}

	components, err := factory.NewComponentsHandler(dbPath, username, password, *cfg)
	if err != nil {
		return err
	}

	components.Start()

	log.Info("Dashboard service started", "address", components.GetServer().Address(), "query service", cfg.QueryServiceURL)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	<-sigs

	log.Info("Application closing, calling Close on all subcomponents...")
	components.Close()

	return nil
}

// readCredentials returns the basic auth credentials. A missing .env file disables the authentication.
func readCredentials(path string) (string, string, error) {
	envFileContents := map[string]string{
		envUsername: "",
		envPassword: "",
	}

	err := commonGo.ReadEnvFile(path, envFileContents)
	if errors.Is(err, commonGo.ErrEnvFileMissing) {
		log.Warn("no .env file found, the web UI will not require authentication", "path", path)
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}

	return envFileContents[envUsername], envFileContents[envPassword], nil
}
