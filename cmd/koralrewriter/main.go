package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/KorAP/Koral-Rewriter/config"
	"github.com/KorAP/Koral-Rewriter/oracle"
	"github.com/KorAP/Koral-Rewriter/rewrite"
	"github.com/KorAP/Koral-Rewriter/rewriter"
	"github.com/alecthomas/kong"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	maxInputLength = 1024 * 1024 // 1MB
	maxParamLength = 1024        // 1KB

	requestIDHeader = "X-Request-ID"
)

type appConfig struct {
	Port     *int     `kong:"short='p',help='Port to listen on'"`
	Config   string   `kong:"short='c',help='YAML configuration file containing the type hierarchy, rule lists and global settings'"`
	Rules    []string `kong:"short='r',help='Individual YAML rule files to load (supports glob patterns like dir/*.yaml)'"`
	LogLevel *string  `kong:"short='l',help='Log level (debug, info, warn, error)'"`

	Serve serveCmd `kong:"cmd,default='1',help='Run the rewriting web service (default)'"`
	Apply applyCmd `kong:"cmd,help='Rewrite a single JSON syntax tree and print the result'"`
}

type serveCmd struct{}

type applyCmd struct {
	Lists string `kong:"short='L',required,help='Rule list IDs to apply in order, separated by semicolons'"`
	Input string `kong:"short='i',default='-',help='JSON syntax tree file, - for stdin'"`
}

// listInfo describes a rule list in the service overview
type listInfo struct {
	ID          string     `json:"id"`
	Description string     `json:"desc,omitempty"`
	Rules       []ruleInfo `json:"rules"`
}

type ruleInfo struct {
	ID     string `json:"id,omitempty"`
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

// overview is the payload of the service's root endpoint
type overview struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Version     string     `json:"version"`
	Hash        string     `json:"hash"`
	Date        string     `json:"date"`
	Lists       []listInfo `json:"lists"`
}

func parseConfig() (*appConfig, string) {
	cfg := &appConfig{}

	desc := config.Description
	desc += " [" + config.Version + "]"

	ctx := kong.Parse(cfg,
		kong.Name(strings.ToLower(config.Title)),
		kong.Description(desc),
		kong.UsageOnError(),
	)
	if ctx.Error != nil {
		fmt.Fprintln(os.Stderr, ctx.Error)
		os.Exit(1)
	}
	return cfg, ctx.Command()
}

func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Error().Err(err).Str("level", level).Msg("Invalid log level, defaulting to info")
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)
	fd := os.Stderr.Fd()
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd),
	})
}

// setupRequestID assigns every request an ID, keeping one sent by the client
func setupRequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Locals(requestIDHeader, id)
		c.Set(requestIDHeader, id)
		return c.Next()
	}
}

// setupFiberLogger configures fiber's logger middleware to integrate with zerolog
func setupFiberLogger() fiber.Handler {
	// HTTP request logging is only enabled for debug and info
	if zerolog.GlobalLevel() > zerolog.InfoLevel {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)
		status := c.Response().StatusCode()

		logEvent := log.Info()
		if status >= 400 && status < 500 {
			logEvent = log.Warn()
		} else if status >= 500 {
			logEvent = log.Error()
		}

		requestID, _ := c.Locals(requestIDHeader).(string)
		logEvent.
			Int("status", status).
			Dur("latency", latency).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Str("request_id", requestID).
			Str("user_agent", c.Get("User-Agent")).
			Msg("HTTP request")

		return err
	}
}

func main() {
	cfg, command := parseConfig()

	if cfg.Config == "" && len(cfg.Rules) == 0 {
		log.Fatal().Msg("At least one configuration source must be provided: use -c for main config file or -r for rule files")
	}

	expandedRules, err := expandGlobs(cfg.Rules)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to expand glob patterns in rule files")
	}

	yamlConfig, err := config.LoadFromSources(cfg.Config, expandedRules)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	finalPort := yamlConfig.Port
	finalLogLevel := yamlConfig.LogLevel

	// Command line values override the config file
	if cfg.Port != nil {
		finalPort = *cfg.Port
	}
	if cfg.LogLevel != nil {
		finalLogLevel = *cfg.LogLevel
	}

	setupLogger(finalLogLevel)

	r, err := newRewriter(yamlConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create rewriter")
	}

	if command == "apply" {
		if err := runApply(r, yamlConfig.Lists, cfg.Apply, os.Stdin, os.Stdout); err != nil {
			log.Fatal().Err(err).Msg("Failed to rewrite input")
		}
		return
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             maxInputLength,
		ReadBufferSize:        64 * 1024, // 64KB - increase header size limit
		WriteBufferSize:       64 * 1024, // 64KB - increase response buffer size
	})

	app.Use(setupRequestID())
	app.Use(setupFiberLogger())

	setupRoutes(app, r)

	go func() {
		log.Info().Int("port", finalPort).Msg("Starting server")
		fmt.Printf("Starting server port=%d\n", finalPort)

		for _, list := range yamlConfig.Lists {
			log.Info().Str("id", list.ID).Str("desc", list.Description).Int("rules", len(list.Rules)).Msg("Loaded rule list")
			fmt.Printf("Loaded rule list desc=%s id=%s rules=%d\n",
				formatConsoleField(list.Description),
				list.ID,
				len(list.Rules),
			)
		}

		if err := app.Listen(fmt.Sprintf(":%d", finalPort)); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down server")
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

// newRewriter wires the declared hierarchy, the annotation oracle and the
// rule lists together
func newRewriter(yamlConfig *config.RewriteConfig) (*rewriter.Rewriter, error) {
	hierarchy, err := yamlConfig.BuildHierarchy()
	if err != nil {
		return nil, err
	}
	o, err := oracle.NewAnnotationOracle(hierarchy)
	if err != nil {
		return nil, err
	}
	return rewriter.NewRewriter(yamlConfig.Lists, o)
}

func setupRoutes(app *fiber.App, r *rewriter.Rewriter) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/", handleOverview(r))

	// Cascade endpoint
	app.Post("/rewrite", handleCascadeRewrite(r))

	// Single list endpoint
	app.Post("/:list/rewrite", handleRewrite(r))
}

func handleOverview(r *rewriter.Rewriter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data := overview{
			Title:       config.Title,
			Description: config.Description,
			Version:     config.Version,
			Hash:        config.Buildhash,
			Date:        config.Buildtime,
			Lists:       []listInfo{},
		}
		for _, list := range r.Lists() {
			info := listInfo{ID: list.ID, Description: list.Description, Rules: []ruleInfo{}}
			for _, rule := range list.Rules {
				info.Rules = append(info.Rules, ruleInfo{ID: rule.ID, Kind: rule.Kind, Target: rule.Target})
			}
			data.Lists = append(data.Lists, info)
		}
		return c.JSON(data)
	}
}

func handleRewrite(r *rewriter.Rewriter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		listID := c.Params("list")

		if err := validateInput(listID, c.Body()); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		jsonData, err := decodeTree(c.Body())
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON in request body",
			})
		}

		result, err := r.ApplyRules(listID, jsonData)
		if err != nil {
			log.Error().Err(err).Str("list", listID).Msg("Failed to apply rules")
			return c.Status(errorStatus(err)).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(result)
	}
}

func handleCascadeRewrite(r *rewriter.Rewriter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		listsRaw := c.Query("lists", "")
		if len(listsRaw) > maxParamLength {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("lists too long (max %d bytes)", maxParamLength),
			})
		}

		jsonData, err := decodeTree(c.Body())
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON in request body",
			})
		}

		ids, err := ParseListsParam(listsRaw, r.Lists())
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		if len(ids) == 0 {
			return c.JSON(jsonData)
		}

		result, err := r.CascadeRules(ids, jsonData)
		if err != nil {
			log.Error().Err(err).Str("lists", listsRaw).Msg("Failed to apply cascaded rules")
			return c.Status(errorStatus(err)).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(result)
	}
}

// errorStatus maps rewriter errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, rewriter.ErrListNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, rewriter.ErrInvalidTree):
		return fiber.StatusBadRequest
	case errors.Is(err, rewrite.ErrMalformedInput):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// decodeTree decodes a JSON document keeping numbers as json.Number, so
// integer literals survive the round trip unchanged
func decodeTree(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON document")
	}
	return v, nil
}

// validateInput checks if the input parameters are valid
func validateInput(listID string, body []byte) error {
	if len(listID) > maxParamLength {
		return fmt.Errorf("list too long (max %d bytes)", maxParamLength)
	}
	if strings.ContainsAny(listID, "<>{}[]\\") {
		return fmt.Errorf("list contains invalid characters")
	}

	if len(body) > maxInputLength {
		return fmt.Errorf("request body too large (max %d bytes)", maxInputLength)
	}

	return nil
}

// runApply rewrites one tree read from the configured input (or stdin)
// and writes the indented result to out
func runApply(r *rewriter.Rewriter, lists []config.RuleList, cmd applyCmd, stdin io.Reader, out io.Writer) error {
	ids, err := ParseListsParam(cmd.Lists, lists)
	if err != nil {
		return err
	}

	in := stdin
	if cmd.Input != "" && cmd.Input != "-" {
		f, err := os.Open(cmd.Input)
		if err != nil {
			return fmt.Errorf("failed to open input file '%s': %w", cmd.Input, err)
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	jsonData, err := decodeTree(data)
	if err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}

	result, err := r.CascadeRules(ids, jsonData)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func formatConsoleField(value string) string {
	if strings.ContainsAny(value, " \t") {
		return strconv.Quote(value)
	}
	return value
}

// expandGlobs expands glob patterns in the slice of file paths
// Returns the expanded list of files or an error if glob expansion fails
func expandGlobs(patterns []string) ([]string, error) {
	var expanded []string

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to expand glob pattern '%s': %w", pattern, err)
		}

		// If no matches found, treat as literal filename (consistent with shell behavior)
		if len(matches) == 0 {
			log.Warn().Str("pattern", pattern).Msg("Glob pattern matched no files, treating as literal filename")
			expanded = append(expanded, pattern)
		} else {
			expanded = append(expanded, matches...)
		}
	}

	return expanded, nil
}
