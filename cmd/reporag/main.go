// Package main provides the repo-rag CLI for ingesting repositories and
// querying the index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/repo-rag/internal/app"
	"github.com/mike-a-ellis/repo-rag/internal/config"
	"github.com/mike-a-ellis/repo-rag/internal/rag"
	"github.com/mike-a-ellis/repo-rag/internal/selector"
	"github.com/mike-a-ellis/repo-rag/internal/source"
)

const envHelp = `Environment variables:
  OPENAI_API_KEY        OpenAI API key for embeddings (required to ingest or ask)
  EMBEDDING_MODEL       Embedding model (default: text-embedding-3-small)
  VECTOR_BACKEND        qdrant, or memory for a process-local index (default: qdrant)
  QDRANT_HOST           Qdrant hostname (default: localhost)
  QDRANT_PORT           Qdrant gRPC port (default: 6334)
  INDEX_NAME            Qdrant collection (default: repositories)
  CHUNK_SIZE            Maximum chunk length in characters (default: 1000)
  CHUNK_OVERLAP         Characters shared by adjacent chunks (default: 100)
  REINGEST_POLICY       append or replace (default: append)
  GITHUB_TOKEN          GitHub token for higher rate limits (optional)
  LOG_LEVEL             debug, info, warn or error (default: info)`

var (
	branch    string
	localPath string
	namespace string
	topK      int
)

var rootCmd = &cobra.Command{
	Use:           "reporag",
	Short:         "Repository ingestion and retrieval",
	Long:          "Index GitHub repositories into a vector store and retrieve the chunks most relevant to a question.\n\n" + envHelp,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest owner/name",
	Short: "Chunk, embed and index a repository",
	Long: `Reads a repository, splits its source files into overlapping chunks,
embeds them and writes them to the owner/name namespace.

Files are read from GitHub unless --path points at a local checkout, in
which case owner/name only names the namespace.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask question",
	Short: "Retrieve the chunks most relevant to a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var statusCmd = &cobra.Command{
	Use:   "status owner/name",
	Short: "Show what the index holds for a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var clearCmd = &cobra.Command{
	Use:   "clear owner/name",
	Short: "Remove a repository from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runClear,
}

func init() {
	ingestCmd.Flags().StringVarP(&branch, "branch", "b", "", "branch to read (default branch when empty)")
	ingestCmd.Flags().StringVar(&localPath, "path", "", "read files from a local directory instead of GitHub")

	askCmd.Flags().StringVarP(&namespace, "namespace", "n", "", "repository to search, as owner/name")
	askCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of chunks to return (default TOP_K)")
	_ = askCmd.MarkFlagRequired("namespace")

	rootCmd.AddCommand(ingestCmd, askCmd, statusCmd, clearCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads the configuration and wires the stack. src overrides the
// GitHub source when non-nil.
func setup(ctx context.Context, src func(*config.Config) source.Source) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	var s source.Source
	if src != nil {
		s = src(cfg)
	}
	return app.New(ctx, cfg, s, logger)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ref, err := source.ParseRef(args[0], branch)
	if err != nil {
		return err
	}

	var local func(*config.Config) source.Source
	if localPath != "" {
		info, err := os.Stat(localPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", localPath, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", localPath)
		}
		local = func(cfg *config.Config) source.Source {
			return source.NewLocal(os.DirFS(localPath), selector.New(cfg.BlockedDirs...), slog.Default())
		}
	}

	a, err := setup(cmd.Context(), local)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Ingesting %s into %s...\n", ref, ref.Namespace())
	summary, err := a.Service.Ingest(cmd.Context(), rag.NewSession(), ref.Owner, ref.Name, ref.Branch)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Namespace: %s\n", summary.Namespace)
	if summary.Revision != "" {
		fmt.Printf("  Commit: %s\n", summary.Revision)
	}
	fmt.Printf("  Documents: %d\n", summary.DocumentsLoaded)
	fmt.Printf("  Chunks: %d\n", summary.ChunksCreated)
	fmt.Printf("  Entries written: %d\n", summary.EntriesWritten)
	fmt.Printf("  Skipped: %d (excluded %d, undecodable %d, unsupported %d)\n",
		summary.FilesSkipped.Total(), summary.FilesSkipped.Excluded,
		summary.FilesSkipped.Undecodable, summary.FilesSkipped.Unsupported)
	fmt.Printf("  Duration: %s\n", summary.Duration.Round(time.Millisecond))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	question := strings.Join(args, " ")
	result, err := a.Service.AskNamespace(cmd.Context(), namespace, question, topK)
	if err != nil {
		return err
	}

	if len(result.Matches) == 0 {
		fmt.Printf("No matching chunks in %s.\n", result.Namespace)
		return nil
	}
	for i, m := range result.Matches {
		fmt.Printf("%d. %s#%d (score %.4f)\n", i+1, m.Metadata.SourcePath, m.Metadata.Ordinal, m.Score)
		if m.Metadata.Section != "" {
			fmt.Printf("   %s\n", m.Metadata.Section)
		}
		fmt.Println(indent(m.Text, "   "))
		fmt.Println()
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.Service.Status(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Namespace: %s\n", status.Namespace)
	fmt.Printf("  Entries: %d\n", status.Entries)
	if status.Entries == 0 {
		return nil
	}
	fmt.Printf("  Model: %s\n", status.Model)
	if !status.IndexedAt.IsZero() {
		fmt.Printf("  Indexed: %s\n", status.IndexedAt.Format(time.RFC3339))
	}
	if status.Revision != "" {
		fmt.Printf("  Commit: %s\n", status.Revision)
		owner, name, _ := strings.Cut(status.Namespace, "/")
		if behind, err := a.GitHub.CommitsBehind(cmd.Context(), owner, name, status.Revision); err == nil {
			fmt.Printf("  Commits behind: %d\n", behind)
		} else {
			slog.Debug("Staleness check failed", "namespace", status.Namespace, "error", err)
		}
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Service.Clear(cmd.Context(), nil, args[0]); err != nil {
		return err
	}
	fmt.Printf("Cleared %s\n", strings.ToLower(args[0]))
	return nil
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
