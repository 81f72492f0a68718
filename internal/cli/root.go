// Package cli implements the sambamart terminal client commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/natefinch/lumberjack"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sambamart/storefront/internal/cart"
	"github.com/sambamart/storefront/internal/client"
)

const (
	keyAPIURL   = "api-url"
	keyToken    = "token"
	keyStateDir = "state-dir"
	keyLogFile  = "log-file"
	keyTimeout  = "timeout"
	keyVerbose  = "verbose"
)

// env is the state shared by all commands of one invocation.
type env struct {
	v   *viper.Viper
	out io.Writer

	lg      *zap.Logger
	logFile io.Closer
	cart    *cart.Store
	api     *client.Client
}

// Command is the sambamart command tree. It owns the log file opened by
// its commands.
type Command struct {
	*cobra.Command
	env *env
}

// ExecuteContext runs the command tree and closes the log file, also when
// the command fails.
func (c *Command) ExecuteContext(ctx context.Context) error {
	err := c.Command.ExecuteContext(ctx)
	if err != nil && c.env.lg != nil {
		c.env.lg.Warn("Command failed", zap.Error(err))
	}
	if cerr := c.env.close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "close log")
	}
	return err
}

// NewRootCommand builds the sambamart command tree writing user output to
// out.
func NewRootCommand(out io.Writer) *Command {
	e := &env{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:           "sambamart",
		Short:         "Browse the sambamart catalog and place orders from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e.cart != nil && e.cart.IsOpen() && !isCartCommand(cmd) {
				_, _ = fmt.Fprintf(out, "\nCart: %d items, %s\n", e.cart.ItemCount(), formatPrice(e.cart.Total()))
			}
		},
	}
	root.SetOut(out)

	f := root.PersistentFlags()
	f.String(keyAPIURL, "http://localhost:8080", "storefront API base URL")
	f.String(keyToken, "", "bearer token; overrides the stored login")
	f.String(keyStateDir, defaultStateDir(), "directory holding the cart, login and log files")
	f.String(keyLogFile, "", "log file path (default <state-dir>/sambamart.log)")
	f.Duration(keyTimeout, 10*time.Second, "API request timeout")
	f.BoolP(keyVerbose, "v", false, "debug logging")
	_ = e.v.BindPFlags(f)

	e.v.SetEnvPrefix("SAMBAMART")
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.v.AutomaticEnv()

	root.AddCommand(
		e.productsCommand(),
		e.categoriesCommand(),
		e.cartCommand(),
		e.checkoutCommand(),
		e.ordersCommand(),
		e.whoamiCommand(),
		e.loginCommand(),
		e.logoutCommand(),
	)
	return &Command{Command: root, env: e}
}

// Execute runs the client until completion or ctx cancellation.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdout).ExecuteContext(ctx)
}

func isCartCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "cart" {
			return true
		}
	}
	return false
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "sambamart")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "sambamart")
	}
	return ".sambamart"
}

// readConfigFile merges an optional config.yaml from the state directory.
func (e *env) readConfigFile(dir string) error {
	e.v.SetConfigName("config")
	e.v.SetConfigType("yaml")
	e.v.AddConfigPath(dir)
	if err := e.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "read config")
	}
	return nil
}

func (e *env) setup(cmd *cobra.Command) error {
	dir := e.v.GetString(keyStateDir)
	if err := e.readConfigFile(dir); err != nil {
		return err
	}

	lg, err := e.newLogger(dir)
	if err != nil {
		return err
	}
	e.lg = lg
	cmd.SetContext(zctx.Base(cmd.Context(), lg))

	persister := cart.NewFilePersister(dir)
	store, err := cart.Open(persister)
	if err != nil {
		lg.Warn("Discarding unreadable cart", zap.String("path", persister.Path()), zap.Error(err))
		store = cart.New(persister)
	}
	e.cart = store

	token := e.v.GetString(keyToken)
	if token == "" {
		if token, err = loadToken(dir); err != nil {
			return err
		}
	}
	e.api = client.New(e.v.GetString(keyAPIURL), client.Options{
		Token:   token,
		Timeout: e.v.GetDuration(keyTimeout),
		Logger:  lg.Named("api"),
	})

	lg.Debug("Client ready",
		zap.String("api_url", e.v.GetString(keyAPIURL)),
		zap.String("state_dir", dir),
		zap.Bool("authenticated", token != ""),
	)
	return nil
}

// newLogger logs to a rotating file so that stdout stays free for output.
func (e *env) newLogger(dir string) (*zap.Logger, error) {
	path := e.v.GetString(keyLogFile)
	if path == "" {
		path = filepath.Join(dir, "sambamart.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}

	level := zap.InfoLevel
	if e.v.GetBool(keyVerbose) {
		level = zap.DebugLevel
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		Compress:   true,
	}
	e.logFile = w

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core), nil
}

func (e *env) close() error {
	if e.lg != nil {
		_ = e.lg.Sync()
		e.lg = nil
	}
	if e.logFile == nil {
		return nil
	}
	f := e.logFile
	e.logFile = nil
	return f.Close()
}

func (e *env) stateDir() string {
	return e.v.GetString(keyStateDir)
}
