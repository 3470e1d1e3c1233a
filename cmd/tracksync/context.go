package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tracksync/internal/catalog"
	"tracksync/internal/config"
	"tracksync/internal/logging"
	"tracksync/internal/services"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// session is one command's view of the catalog.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	catalog  *catalog.Catalog
	resolver *catalog.PathResolver
	ctx      context.Context
}

// openSession loads config, builds the logger, and opens the catalog. The
// returned context carries the operation name, device id, and a fresh
// correlation id for log lines.
func (c *commandContext) openSession(cmd *cobra.Command, operation string) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts := logging.OptionsFromConfig(cfg)
	opts.Console = cmd.ErrOrStderr()
	logger, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	catalogOpts := catalog.FromConfig(cfg)
	catalogOpts.Logger = logger
	cat, err := catalog.Open(ctx, catalogOpts)
	if err != nil {
		return nil, err
	}

	ctx = services.WithOperation(ctx, operation)
	ctx = services.WithDeviceID(ctx, cat.DeviceID())
	ctx = services.WithRequestID(ctx, uuid.NewString())
	return &session{
		cfg:      cfg,
		logger:   logging.WithContext(ctx, logger),
		catalog:  cat,
		resolver: catalog.NewPathResolver(cat, cfg.Library.Root, cfg.Library.RelativePaths),
		ctx:      ctx,
	}, nil
}

func (s *session) Close() error {
	return s.catalog.Close()
}

// withSession runs fn against an open catalog and always closes it.
func (c *commandContext) withSession(cmd *cobra.Command, operation string, fn func(*session) error) (err error) {
	s, err := c.openSession(cmd, operation)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close catalog: %w", closeErr)
		}
	}()
	return fn(s)
}

// withLockedSession is withSession holding the advisory catalog lock.
func (c *commandContext) withLockedSession(cmd *cobra.Command, operation string, fn func(*session) error) error {
	return c.withSession(cmd, operation, func(s *session) error {
		release, err := s.catalog.Lock(s.ctx)
		if err != nil {
			return err
		}
		defer release()
		return fn(s)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
