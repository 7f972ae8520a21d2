package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/toolbelt-labs/toolbelt/pkg/corpus"
	"github.com/toolbelt-labs/toolbelt/pkg/logger"
	"github.com/toolbelt-labs/toolbelt/pkg/pm"
	"github.com/toolbelt-labs/toolbelt/pkg/presenter"
)

// LintConfig holds configuration for the lint command
type LintConfig struct {
	Includes     []string
	Watch        bool
	DebounceTime int
	JSONOutput   bool
}

// NewLintConfig creates a new LintConfig with default values
func NewLintConfig() *LintConfig {
	return &LintConfig{
		Includes:     nil,
		Watch:        false,
		DebounceTime: 500,
		JSONOutput:   false,
	}
}

// corpusEvent is a file system event with the time it was seen
type corpusEvent struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

var lintCmd = &cobra.Command{
	Use:   "lint [dir]",
	Short: "Lint the customization corpus",
	Long: `Checks agents, commands, skills and rules for required frontmatter and
validates settings.json and mcp.json against their schemas.

Without a directory argument it lints ./.toolbelt when present, otherwise
the current directory.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getLintConfigFromFlags(cmd)

		root := defaultCorpusRoot()
		if len(args) > 0 {
			root = args[0]
		}

		if config.Watch {
			runLintWatch(cmd.Context(), root, config)
			return
		}

		result, err := runLint(root, config)
		if err != nil {
			presenter.Error(err, "Failed to lint corpus")
			os.Exit(1)
		}
		if !result.OK() {
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewLintConfig()
	lintCmd.Flags().StringSliceP("include", "p", defaults.Includes, "Glob patterns restricting checked paths (e.g. 'agents/**')")
	lintCmd.Flags().BoolP("watch", "w", defaults.Watch, "Re-lint whenever a corpus file changes")
	lintCmd.Flags().IntP("debounce", "d", defaults.DebounceTime, "Debounce time in milliseconds for file change events")
	lintCmd.Flags().Bool("json", defaults.JSONOutput, "Output the result in JSON format")
}

// getLintConfigFromFlags extracts lint configuration from command flags
func getLintConfigFromFlags(cmd *cobra.Command) *LintConfig {
	config := NewLintConfig()

	if includes, err := cmd.Flags().GetStringSlice("include"); err == nil {
		config.Includes = includes
	}
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}
	if debounce, err := cmd.Flags().GetInt("debounce"); err == nil {
		config.DebounceTime = debounce
	}
	if jsonOut, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSONOutput = jsonOut
	}

	return config
}

func defaultCorpusRoot() string {
	if info, err := os.Stat(pm.ConfigDirName); err == nil && info.IsDir() {
		return pm.ConfigDirName
	}
	return "."
}

func runLint(root string, config *LintConfig) (*corpus.Result, error) {
	result, err := corpus.NewLinter(root, corpus.WithIncludes(config.Includes...)).Run()
	if err != nil {
		return nil, err
	}

	if config.JSONOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to render result")
		}
		fmt.Println(string(data))
		return result, nil
	}

	for _, issue := range result.Issues {
		fmt.Println(issue.String())
	}
	if result.OK() {
		presenter.Success(fmt.Sprintf("Corpus clean, %d files checked", result.Checked))
	} else {
		presenter.Warning(fmt.Sprintf("%d issues in %d files checked", len(result.Issues), result.Checked))
	}
	return result, nil
}

func runLintWatch(ctx context.Context, root string, config *LintConfig) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		presenter.Warning("Cancellation requested, shutting down...")
		cancel()
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		presenter.Error(err, "Failed to create file watcher")
		os.Exit(1)
	}
	defer watcher.Close()

	// Setup debouncing mechanism
	events := make(chan corpusEvent)
	debouncedEvents := make(chan corpusEvent)
	go debounceCorpusEvents(ctx, events, debouncedEvents, time.Duration(config.DebounceTime)*time.Millisecond)

	// Re-lint on debounced events
	go func() {
		for {
			select {
			case event, ok := <-debouncedEvents:
				if !ok {
					return
				}
				presenter.Info(fmt.Sprintf("Change detected: %s (%s)", event.Path, event.Op))
				logger.G(ctx).WithFields(map[string]interface{}{
					"file":      event.Path,
					"operation": event.Op.String(),
					"timestamp": event.Time,
				}).Debug("Corpus change detected")
				if _, err := runLint(root, config); err != nil {
					presenter.Error(err, "Failed to lint corpus")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Watch for events
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Newly created directories need their own watch
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := watcher.Add(event.Name); err != nil {
							logger.G(ctx).WithError(err).WithField("directory", event.Name).Warn("Failed to watch new directory")
						}
						continue
					}
				}
				if !relintWorthy(event.Name) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					select {
					case events <- corpusEvent{Path: event.Name, Op: event.Op, Time: time.Now()}:
					case <-ctx.Done():
						return
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				presenter.Error(err, "File watcher error")
				logger.G(ctx).WithError(err).Error("Error watching corpus")
			case <-ctx.Done():
				return
			}
		}
	}()

	// Add the corpus root and subdirectories to the watcher
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			logger.G(ctx).WithField("directory", path).Debug("Adding directory to watcher")
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		presenter.Error(err, "Failed to watch corpus directories")
		os.Exit(1)
	}

	// Initial pass before waiting for changes
	if _, err := runLint(root, config); err != nil {
		presenter.Error(err, "Failed to lint corpus")
	}

	presenter.Info("Watching for corpus changes... Press Ctrl+C to stop")

	// Wait for context cancellation
	<-ctx.Done()
}

// relintWorthy filters watcher noise down to the files the linter reads
func relintWorthy(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".md") || base == "settings.json" || base == "mcp.json"
}

// debounceCorpusEvents collapses rapid changes to the same file into a
// single event after the delay elapses.
func debounceCorpusEvents(ctx context.Context, input <-chan corpusEvent, output chan<- corpusEvent, delay time.Duration) {
	pending := make(map[string]*time.Timer)

	for {
		select {
		case event, ok := <-input:
			if !ok {
				for _, timer := range pending {
					timer.Stop()
				}
				return
			}
			if timer, exists := pending[event.Path]; exists {
				timer.Stop()
			}
			eventCopy := event
			pending[event.Path] = time.AfterFunc(delay, func() {
				select {
				case output <- eventCopy:
				case <-ctx.Done():
				}
			})
		case <-ctx.Done():
			for _, timer := range pending {
				timer.Stop()
			}
			return
		}
	}
}
