// Command promote_prompt drives prompt content
// operations against a git hosting platform: project
// initialization, production and test tagging, and
// history inspection.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/rh-aiservices-bu/grimoire/gitops/cache"
	"github.com/rh-aiservices-bu/grimoire/gitops/git"
	"github.com/rh-aiservices-bu/grimoire/gitops/git/registry"
	"github.com/rh-aiservices-bu/grimoire/gitops/history"
	"github.com/rh-aiservices-bu/grimoire/gitops/promote"
	"github.com/rh-aiservices-bu/grimoire/gitops/snapshot"
	"github.com/rh-aiservices-bu/grimoire/gitops/store"
)

// fileConfig mirrors the YAML configuration file.
type fileConfig struct {
	Platform   string `yaml:"platform"`
	Username   string `yaml:"username"`
	Token      string `yaml:"token"`
	ServerURL  string `yaml:"server_url"`
	RepoURL    string `yaml:"repo_url"`
	Project    string `yaml:"project"`
	ProviderID string `yaml:"provider_id"`
	StorePath  string `yaml:"store_path"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // CLI flag setup is inherently long
func run() error {
	const errCtx = "running promote_prompt"

	configPath := flag.String(
		"config", "",
		"Path to an optional YAML configuration file",
	)
	platform := flag.String(
		"platform", "",
		"Platform: github, gitlab, or gitea",
	)
	username := flag.String(
		"username", "",
		"Platform account login",
	)
	token := flag.String(
		"token", "",
		"Platform access token",
	)
	serverURL := flag.String(
		"server_url", "",
		"Self-hosted instance base URL",
	)
	repoURL := flag.String(
		"repo_url", "",
		"Repository URL",
	)
	project := flag.String(
		"project", "",
		"Project name",
	)
	providerID := flag.String(
		"provider_id", "",
		"Model provider id",
	)
	storePath := flag.String(
		"store_path", "",
		"Path to the durable snapshot cache",
	)
	op := flag.String(
		"op", "",
		"Operation: init, prod, test, get, "+
			"history, status, access",
	)
	snapshotPath := flag.String(
		"snapshot", "",
		"Path to the snapshot JSON for prod/test",
	)
	limit := flag.Int(
		"limit", 10,
		"Maximum history entries to return",
	)
	prNumber := flag.Int(
		"pr", 0,
		"Pull request number for the status op",
	)
	force := flag.Bool(
		"force", false,
		"Bypass the cached PR state",
	)
	flag.Parse()

	cfg := &fileConfig{}

	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		cfg = loaded
	}

	// Flags override the configuration file.
	applyOverride(&cfg.Platform, *platform)
	applyOverride(&cfg.Username, *username)
	applyOverride(&cfg.Token, *token)
	applyOverride(&cfg.ServerURL, *serverURL)
	applyOverride(&cfg.RepoURL, *repoURL)
	applyOverride(&cfg.Project, *project)
	applyOverride(&cfg.ProviderID, *providerID)
	applyOverride(&cfg.StorePath, *storePath)

	repo, err := git.ParseRepoURL(cfg.RepoURL)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	// The configured platform is authoritative; the
	// platform parsed from the URL is only a guess.
	cred := git.Credential{
		Platform:  git.Platform(cfg.Platform),
		Username:  cfg.Username,
		Token:     cfg.Token,
		ServerURL: cfg.ServerURL,
	}
	if cred.Platform != "" {
		repo.Platform = cred.Platform
	} else {
		cred.Platform = repo.Platform
	}

	provider, err := registry.New(cred, repo)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	promoter, err := promote.New(promote.Config{
		Provider:   provider,
		Cache:      cache.NewMemory(),
		Project:    cfg.Project,
		ProviderID: cfg.ProviderID,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	ctx := context.Background()

	switch *op {
	case "init":
		pr, err := promoter.InitProject(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		fmt.Printf(
			"opened PR #%d: %s\n", pr.Number, pr.URL,
		)

	case "prod":
		snap, err := loadSnapshot(*snapshotPath)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		pr, err := promoter.TagProduction(ctx, snap)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		fmt.Printf(
			"opened PR #%d: %s\n", pr.Number, pr.URL,
		)

	case "test":
		snap, err := loadSnapshot(*snapshotPath)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		commit, err := promoter.TagTest(ctx, snap)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		fmt.Printf("committed %s\n", commit.SHA)

	case "get":
		snap, err := promoter.ProductionSnapshot(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		if snap == nil {
			fmt.Println("no production prompt")

			return nil
		}

		content, err := snap.Encode()
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		fmt.Println(string(content))

	case "history":
		if err := printHistory(
			ctx, provider, cfg, *limit,
		); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

	case "status":
		state, err := promoter.PRStatus(
			ctx, *prNumber, *force,
		)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		fmt.Println(state)

	case "access":
		if !promoter.TestAccess(ctx, cfg.Username) {
			return fmt.Errorf(
				"%s: access denied for %s",
				errCtx, cfg.Username,
			)
		}

		fmt.Println("access granted")

	default:
		return fmt.Errorf(
			"%s: unknown op %q", errCtx, *op,
		)
	}

	return nil
}

func applyOverride(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(
			"reading config: %w", err,
		)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf(
			"parsing config: %w", err,
		)
	}

	return &cfg, nil
}

func loadSnapshot(
	path string,
) (*snapshot.Snapshot, error) {
	if path == "" {
		return nil, fmt.Errorf(
			"-snapshot is required for this op",
		)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(
			"reading snapshot: %w", err,
		)
	}

	return snapshot.Decode(data)
}

func printHistory(
	ctx context.Context,
	provider git.Provider,
	cfg *fileConfig,
	limit int,
) error {
	var snapStore history.SnapshotStore

	if cfg.StorePath != "" {
		st, err := store.Open(cfg.StorePath)
		if err != nil {
			return err
		}

		defer st.Close() //nolint:errcheck

		snapStore = st
	}

	r, err := history.New(history.Config{
		Provider:   provider,
		Store:      snapStore,
		Project:    cfg.Project,
		ProviderID: cfg.ProviderID,
	})
	if err != nil {
		return err
	}

	entries, err := r.ProductionHistory(ctx, limit)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		marker := " "
		if entry.Current {
			marker = "*"
		}

		fmt.Printf(
			"%s %s  %-14s  %s\n",
			marker,
			entry.Commit.SHA,
			entry.Kind,
			entry.Commit.Message,
		)
	}

	return nil
}
