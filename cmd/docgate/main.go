package main

import (
	"context"
	"fmt"
	"log"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"docgate/internal/agent"
	"docgate/internal/ai"
	"docgate/internal/backup"
	"docgate/internal/chunker"
	"docgate/internal/config"
	"docgate/internal/database"
	"docgate/internal/embedding"
	"docgate/internal/extract"
	"docgate/internal/gateway"
	"docgate/internal/retrieval"
	"docgate/internal/vector"
	"docgate/internal/version"
)

var (
	cfgFile string
	verbose bool
	port    int

	ownerID  int64
	docTitle string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docgate",
	Short: "Docgate - document-grounded question answering server",
	Long: `Docgate indexes user documents into an embedded vector store and
answers questions against them, falling back to general knowledge when
no document content is relevant.`,
	Version: version.Full(),
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Docgate HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Store and index a document for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(args[0])
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against a user's documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := args[0]
		for _, a := range args[1:] {
			question += " " + a
		}
		return runAsk(question)
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Take a snapshot of the databases now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackup()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Docgate %s\n", version.Full())
		info := version.BuildInfo()
		if info.GitCommit != "unknown" {
			fmt.Printf("Git commit: %s\n", info.GitCommit)
		}
		if info.BuildDate != "unknown" {
			fmt.Printf("Build date: %s\n", info.BuildDate)
		}
		fmt.Printf("Go version: %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	cobra.OnInitialize(func() {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Println("Verbose logging enabled")
		}
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.json", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	serverCmd.Flags().IntVarP(&port, "port", "p", 0, "override the configured HTTP port")

	ingestCmd.Flags().Int64Var(&ownerID, "owner", 0, "owner user id")
	ingestCmd.Flags().StringVar(&docTitle, "title", "", "document title (defaults to the file name)")
	ingestCmd.MarkFlagRequired("owner")

	askCmd.Flags().Int64Var(&ownerID, "owner", 0, "owner user id")
	askCmd.MarkFlagRequired("owner")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(versionCmd)

	// Default to server mode when no subcommand is given.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return serverCmd.RunE(cmd, args)
	}
}

// app holds the wired components behind every command.
type app struct {
	cfg       *config.Config
	store     *database.Store
	vectors   *vector.Store
	retrieval *retrieval.Service
	pipeline  *agent.Pipeline
}

func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	store, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	vectors, err := vector.Open(cfg.Vector.Path, embedder.Dimensions())
	if err != nil {
		store.Close()
		return nil, err
	}

	splitter := chunker.NewSplitter(cfg.Vector.ChunkSize, cfg.Vector.ChunkOverlap)
	svc := retrieval.NewService(vectors, embedder, splitter, retrieval.Config{
		TopK:            cfg.Vector.TopK,
		OverfetchFactor: cfg.Vector.OverfetchFactor,
		OverfetchFloor:  cfg.Vector.OverfetchFloor,
	})

	policy, err := buildPolicy(cfg)
	if err != nil {
		vectors.Close()
		store.Close()
		return nil, err
	}

	pc, err := cfg.Provider()
	if err != nil {
		vectors.Close()
		store.Close()
		return nil, err
	}
	provider, err := ai.New(pc.Name, pc.APIKey, pc.Model)
	if err != nil {
		vectors.Close()
		store.Close()
		return nil, err
	}

	pipeline := agent.NewPipeline(svc, agent.NewSynthesizer(provider, policy))

	return &app{
		cfg:       cfg,
		store:     store,
		vectors:   vectors,
		retrieval: svc,
		pipeline:  pipeline,
	}, nil
}

func (a *app) Close() {
	if err := a.vectors.Close(); err != nil {
		log.Printf("WARNING: closing vector store: %v", err)
	}
	if err := a.store.Close(); err != nil {
		log.Printf("WARNING: closing database: %v", err)
	}
}

func buildEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Vector.EmbedProvider {
	case "", "hashing":
		return embedding.NewHashing(cfg.Vector.EmbedDims), nil
	case "openai":
		if cfg.Vector.EmbedAPIKey == "" {
			return nil, fmt.Errorf("embed provider openai requires embed_api_key")
		}
		return embedding.NewOpenAI(cfg.Vector.EmbedAPIKey, cfg.Vector.EmbedModel, cfg.Vector.EmbedDims), nil
	default:
		return nil, fmt.Errorf("unknown embed provider %q", cfg.Vector.EmbedProvider)
	}
}

// buildPolicy compiles the answer policy. The configured score_threshold
// seeds the policy; a policy file then overrides whichever fields it sets.
func buildPolicy(cfg *config.Config) (agent.Policy, error) {
	pc := agent.DefaultPolicyConfig()
	if cfg.Vector.ScoreThreshold > 0 {
		pc.Threshold = cfg.Vector.ScoreThreshold
	}
	if cfg.Vector.PolicyFile != "" {
		var err error
		pc, err = agent.LoadPolicyConfig(cfg.Vector.PolicyFile, pc)
		if err != nil {
			return nil, err
		}
	}
	return agent.NewKeywordThreshold(pc)
}

func runServer() error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if port != 0 {
		a.cfg.Port = port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal: %v", sig)
		cancel()
	}()

	if a.cfg.Backup.Enabled {
		mgr := backup.NewManager(a.cfg.Backup.Dir, a.cfg.Backup.Keep,
			a.cfg.Database.Path, a.cfg.Vector.Path)
		if err := mgr.Start(a.cfg.Backup.Schedule); err != nil {
			log.Printf("WARNING: Failed to start backup schedule: %v", err)
		} else {
			defer mgr.Stop()
		}
	}

	gw := gateway.New(a.cfg.Port, a.store, a.retrieval, a.pipeline)
	log.Printf("Starting Docgate on port %d", a.cfg.Port)
	if err := gw.Start(ctx); err != nil {
		return fmt.Errorf("gateway failed: %w", err)
	}

	log.Println("Docgate stopped gracefully")
	return nil
}

func runIngest(path string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	text, err := extract.Text(contentType, data)
	if err != nil {
		return err
	}

	title := docTitle
	if title == "" {
		title = filepath.Base(path)
	}

	ctx := context.Background()
	doc, err := a.store.CreateDocument(ctx, title, text, ownerID)
	if err != nil {
		return err
	}
	chunks, err := a.retrieval.Ingest(ctx, doc.ID, doc.OwnerID, text)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed document %d (%q) for user %d: %d chunks\n", doc.ID, title, ownerID, chunks)
	return nil
}

func runAsk(question string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.pipeline.Answer(context.Background(), question, ownerID)
	if err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	fmt.Printf("(source: %s)\n", resp.Source)
	return nil
}

func runBackup() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	mgr := backup.NewManager(cfg.Backup.Dir, cfg.Backup.Keep,
		cfg.Database.Path, cfg.Vector.Path)
	snap, err := mgr.Run()
	if err != nil {
		return err
	}

	fmt.Printf("Snapshot written to %s (%d files)\n", snap.Dir, len(snap.Manifest.Files))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
