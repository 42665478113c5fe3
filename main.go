package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/WaveAssist/WaveAssist/internal/analyzer"
	"github.com/WaveAssist/WaveAssist/internal/coercer"
	"github.com/WaveAssist/WaveAssist/internal/config"
	"github.com/WaveAssist/WaveAssist/internal/errors"
	"github.com/WaveAssist/WaveAssist/internal/extractor"
	"github.com/WaveAssist/WaveAssist/internal/formatter"
	"github.com/WaveAssist/WaveAssist/internal/generator"
	"github.com/WaveAssist/WaveAssist/internal/llm"
	"github.com/WaveAssist/WaveAssist/internal/parser"
	"github.com/WaveAssist/WaveAssist/internal/pipeline"
	"github.com/WaveAssist/WaveAssist/internal/prompt"
	"github.com/WaveAssist/WaveAssist/internal/schema"
)

// Version information
const (
	Version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Config  string           `help:"Path to config file. Defaults to the nearest .waveassist.yml." short:"c" type:"path"`
	EnvFile string           `help:"Path to a .env file; existing variables are never overridden." name:"env-file" default:".env"`
	Mode    string           `help:"Coercion mode: strict or soft." short:"m"`
	Debug   bool             `help:"Enable debug logging." short:"d"`
	Version kong.VersionFlag `help:"Show version information." short:"v"`

	Coerce   CoerceCmd   `cmd:"" help:"Extract JSON from a model response and coerce it against a schema."`
	Extract  ExtractCmd  `cmd:"" help:"Locate and print the JSON embedded in a model response."`
	Template TemplateCmd `cmd:"" help:"Print the JSON template for a schema."`
	Prompt   PromptCmd   `cmd:"" help:"Print the prompt that asks a model for JSON matching a schema."`
	Infer    InferCmd    `cmd:"" help:"Infer a JSON Schema from a sample JSON value."`
	Ask      AskCmd      `cmd:"" help:"Ask a language model for JSON matching a schema."`
}

// Context holds the runtime context shared by commands
type Context struct {
	Config *config.Config
	Logger *zap.Logger
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute parses args, runs the selected command and returns the exit code.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var cli CLI
	cliParser, err := kong.New(&cli,
		kong.Name("waveassist"),
		kong.Description("Turn free-form language model output into JSON that matches a schema"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Vars{"version": "waveassist version " + Version},
	)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	kctx, err := cliParser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n\nFor help, run: waveassist --help\n", err)
		return 2
	}

	app, err := newContext(&cli, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", errors.UserFriendlyError(err))
		return 1
	}
	defer func() { _ = app.Logger.Sync() }()

	if err := kctx.Run(app); err != nil {
		app.Logger.Debug("command failed", zap.String("command", kctx.Command()), zap.Error(err))
		fmt.Fprintf(stderr, "%s\n", errors.UserFriendlyError(err))
		return 1
	}
	return 0
}

// newContext loads configuration and builds the logger.
func newContext(cli *CLI, stdin io.Reader, stdout, stderr io.Writer) (*Context, error) {
	configPath := cli.Config
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	cfg, err := config.LoadConfigWithCLI(configPath, cli.EnvFile, config.Overrides{
		Mode:  cli.Mode,
		Debug: cli.Debug,
	})
	if err != nil {
		return nil, err
	}

	return &Context{
		Config: cfg,
		Logger: newLogger(cfg.Dev.Debug, stderr),
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}, nil
}

// newLogger writes console logs to w: everything in debug mode, warnings
// and above otherwise.
func newLogger(debug bool, w io.Writer) *zap.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	level := zapcore.WarnLevel
	if debug {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), level)
	return zap.New(core)
}

// CoerceCmd extracts and coerces a model response.
type CoerceCmd struct {
	Schema    string `help:"Path to the schema (JSON Schema or YAML)." short:"s" required:"" type:"path"`
	Input     string `help:"Path to the model response. If not specified, reads from stdin." short:"i" type:"path"`
	Output    string `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
	Repair    bool   `help:"Repair malformed JSON candidates before giving up."`
	LooseKeys bool   `help:"Match keys that differ only in case or separators." name:"loose-keys"`
	Quiet     bool   `help:"Do not print diagnostics." short:"q"`
}

// Run executes the coerce command
func (c *CoerceCmd) Run(ctx *Context) error {
	node, err := schema.ParseFile(c.Schema)
	if err != nil {
		return err
	}
	text, err := readInput(ctx, c.Input)
	if err != nil {
		return err
	}

	if c.Repair {
		ctx.Config.Extraction.Repair = true
	}
	if c.LooseKeys {
		ctx.Config.Coercion.LooseKeys = true
	}
	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}

	outcome, err := p.Run(text, node)
	if err != nil {
		return err
	}

	f := formatter.New(ctx.Config.IndentString())
	if !c.Quiet {
		fmt.Fprint(ctx.Stderr, f.FormatDiagnostics(outcome.Result.Diagnostics))
	}
	if err := outcome.Err(); err != nil {
		return err
	}

	out, err := f.FormatValue(outcome.Result.Value)
	if err != nil {
		return err
	}
	return writeOutput(ctx, c.Output, out)
}

// ExtractCmd prints the JSON candidate found in a model response.
type ExtractCmd struct {
	Input  string `help:"Path to the model response. If not specified, reads from stdin." short:"i" type:"path"`
	Output string `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
	Repair bool   `help:"Repair malformed JSON candidates before giving up."`
}

// Run executes the extract command
func (c *ExtractCmd) Run(ctx *Context) error {
	text, err := readInput(ctx, c.Input)
	if err != nil {
		return err
	}

	ex := extractor.New(extractor.WithRepair(c.Repair || ctx.Config.Extraction.Repair))
	value, candidate, err := ex.ExtractValue(text)
	if err != nil {
		if extractor.IsExtractionFailure(err) {
			return errors.NewExtractionError("could not locate JSON in response", err)
		}
		return errors.NewParsingError("candidate JSON is malformed", err)
	}

	fmt.Fprintf(ctx.Stderr, "strategy: %s (bytes %d-%d)\n", candidate.Strategy, candidate.Start, candidate.End)
	out, err := formatter.New(ctx.Config.IndentString()).FormatValue(value)
	if err != nil {
		return err
	}
	return writeOutput(ctx, c.Output, out)
}

// TemplateCmd prints the template for a schema.
type TemplateCmd struct {
	Schema      string `help:"Path to the schema (JSON Schema or YAML)." short:"s" required:"" type:"path"`
	Output      string `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
	Descriptive bool   `help:"Show type placeholders instead of typed example values."`
	Compact     bool   `help:"Print the template on one line."`
	Go          bool   `help:"Print Go struct definitions instead of a JSON template."`
	Package     string `help:"Package name for generated Go code." short:"p"`
	RootName    string `help:"Name for the root Go type." short:"r"`
}

// Run executes the template command
func (c *TemplateCmd) Run(ctx *Context) error {
	node, err := schema.ParseFile(c.Schema)
	if err != nil {
		return err
	}

	if c.Go {
		pkg := firstNonEmpty(c.Package, ctx.Config.Template.Package)
		root := firstNonEmpty(c.RootName, ctx.Config.Template.RootName)
		code, err := generator.GoSource(node, root, pkg)
		if err != nil {
			return err
		}
		return writeOutput(ctx, c.Output, code)
	}

	gen := generator.NewGenerator(generator.WithDescriptive(c.Descriptive || ctx.Config.Template.Descriptive))
	indent := ctx.Config.IndentString()
	if c.Compact {
		indent = ""
	}
	out, err := generator.Render(gen.Template(node), indent)
	if err != nil {
		return err
	}
	return writeOutput(ctx, c.Output, out)
}

// PromptCmd prints the structured prompt.
type PromptCmd struct {
	Schema string `help:"Path to the schema (JSON Schema or YAML)." short:"s" required:"" type:"path"`
	Text   string `help:"The user prompt. If not specified, reads from stdin." short:"t"`
	Typed  bool   `help:"Embed a typed example instead of type placeholders."`
}

// Run executes the prompt command
func (c *PromptCmd) Run(ctx *Context) error {
	node, err := schema.ParseFile(c.Schema)
	if err != nil {
		return err
	}
	text, err := promptText(ctx, c.Text)
	if err != nil {
		return err
	}

	built, err := prompt.Build(text, node, promptOptions(ctx, c.Typed)...)
	if err != nil {
		return err
	}
	return writeOutput(ctx, "", built)
}

// InferCmd infers a schema from sample JSON.
type InferCmd struct {
	Input  string `help:"Path to the sample JSON. If not specified, reads from stdin." short:"i" type:"path"`
	Output string `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
	YAML   bool   `help:"Print the JSON Schema as YAML." name:"yaml"`
	Type   bool   `help:"Print the compact type expression instead of a JSON Schema."`
}

// Run executes the infer command
func (c *InferCmd) Run(ctx *Context) error {
	text, err := readInput(ctx, c.Input)
	if err != nil {
		return err
	}
	sample, err := parser.ParseString(text)
	if err != nil {
		return errors.NewParsingError("sample is not valid JSON", err)
	}

	node, err := analyzer.NewAnalyzerWithConfig(ctx.Config).Infer(sample)
	if err != nil {
		return err
	}
	if c.Type {
		return writeOutput(ctx, c.Output, node.String())
	}

	f := formatter.New(ctx.Config.IndentString())
	var out string
	if c.YAML {
		out, err = f.FormatYAML(node.JSONSchema())
	} else {
		out, err = f.FormatValue(node.JSONSchema())
	}
	if err != nil {
		return err
	}
	return writeOutput(ctx, c.Output, out)
}

// AskCmd calls a language model and coerces its reply.
type AskCmd struct {
	Schema  string `help:"Path to the schema (JSON Schema or YAML)." short:"s" required:"" type:"path"`
	Text    string `help:"The user prompt. If not specified, reads from stdin." short:"t"`
	Model   string `help:"Model name, e.g. openai/gpt-4o-mini."`
	Output  string `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
	Typed   bool   `help:"Embed a typed example instead of type placeholders."`
	NoRetry bool   `help:"Do not re-ask when the reply does not match the schema." name:"no-retry"`
}

// Run executes the ask command
func (c *AskCmd) Run(ctx *Context) error {
	node, err := schema.ParseFile(c.Schema)
	if err != nil {
		return err
	}
	text, err := promptText(ctx, c.Text)
	if err != nil {
		return err
	}
	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}

	cfg := ctx.Config.LLM
	retry := cfg.RetryOnFormatError && !c.NoRetry
	client := llm.NewClient(cfg.BaseURL, cfg.APIKey,
		llm.WithTimeout(cfg.Timeout),
		llm.WithClientLogger(ctx.Logger),
	)
	opts := []llm.CallerOption{
		llm.WithPipeline(p),
		llm.WithFormatRetry(retry),
		llm.WithUnsupportedJSONModels(cfg.UnsupportedJSONModels),
		llm.WithMaxTokens(cfg.MaxTokens),
		llm.WithPromptOptions(promptOptions(ctx, c.Typed)...),
		llm.WithLogger(ctx.Logger),
	}
	if cfg.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*cfg.Temperature))
	}

	outcome, err := llm.NewCaller(client, opts...).Call(context.Background(), firstNonEmpty(c.Model, cfg.Model), text, node)
	if outcome != nil {
		fmt.Fprint(ctx.Stderr, formatter.NewFormatter().FormatDiagnostics(outcome.Result.Diagnostics))
	}
	if err != nil {
		return err
	}

	out, err := formatter.New(ctx.Config.IndentString()).FormatValue(outcome.Result.Value)
	if err != nil {
		return err
	}
	return writeOutput(ctx, c.Output, out)
}

func newPipeline(ctx *Context) (*pipeline.Pipeline, error) {
	mode, err := ctx.Config.CoercionMode()
	if err != nil {
		return nil, errors.NewConfigError("invalid mode", err)
	}
	return pipeline.New(
		pipeline.WithMode(mode),
		pipeline.WithExtractor(extractor.New(extractor.WithRepair(ctx.Config.Extraction.Repair))),
		pipeline.WithCoercer(coercer.New(ctx.Config.CoercerOptions()...)),
		pipeline.WithLogger(ctx.Logger),
	), nil
}

func promptOptions(ctx *Context, typed bool) []prompt.Option {
	opts := []prompt.Option{prompt.WithIndent(ctx.Config.IndentString())}
	if typed {
		opts = append(opts, prompt.WithTypedTemplate())
	}
	return opts
}

func promptText(ctx *Context, text string) (string, error) {
	if text != "" {
		return text, nil
	}
	return readInput(ctx, "")
}

// readInput reads text from a file or from stdin.
func readInput(ctx *Context, path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", errors.NewInputError(fmt.Sprintf("file '%s' does not exist", path), errors.ErrFileNotFound)
			}
			return "", errors.NewInputError(fmt.Sprintf("failed to read file '%s'", path), err)
		}
		if len(strings.TrimSpace(string(data))) == 0 {
			return "", errors.NewInputError(fmt.Sprintf("file '%s' is empty", path), errors.ErrFileEmpty)
		}
		return string(data), nil
	}

	if f, ok := ctx.Stdin.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			return "", errors.NewInputError("failed to access stdin", err)
		}
		if info.Mode()&os.ModeCharDevice != 0 {
			// Terminal is interactive (not piped)
			fmt.Fprintln(ctx.Stderr, "Paste the input below and press Ctrl+D (or Ctrl+Z on Windows) when done:")
		}
	}

	data, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return "", errors.NewInputError("failed to read from stdin", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", errors.NewInputError("no input provided", errors.ErrNoInput)
	}
	return string(data), nil
}

// writeOutput writes text to a file or stdout
func writeOutput(ctx *Context, path, text string) error {
	text = strings.TrimSpace(text) + "\n"
	if path != "" {
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
		}
		fmt.Fprintf(ctx.Stderr, "Output written to %s\n", path)
		return nil
	}

	if _, err := io.WriteString(ctx.Stdout, text); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
