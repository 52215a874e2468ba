package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/mark3labs/qaflow/internal/chunker"
	"github.com/mark3labs/qaflow/internal/dataloader"
	"github.com/mark3labs/qaflow/internal/embedding"
	"github.com/mark3labs/qaflow/internal/tts"
	"github.com/mark3labs/qaflow/internal/vectorindex"
	"github.com/mark3labs/qaflow/internal/webfetch"
	"github.com/mark3labs/qaflow/internal/websearch"
	"github.com/mark3labs/qaflow/internal/youtube"
	"github.com/spf13/cobra"
)

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch a web page and print its title and text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := webfetch.New(a.cfg.Fetch.Timeout, webfetch.WithLogger(a.logger.Named("webfetch")))
			page, err := f.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Title: %s\n", page.Title)
			fmt.Fprintf(out, "Text length: %d\n", len(page.Text))
			fmt.Fprintln(out, "First 200 characters of text:")
			fmt.Fprintln(out, preview(page.Text, 200))
			return nil
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var num int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the web with Google Custom Search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := websearch.New(websearch.Config{
				APIKey:        a.cfg.Search.APIKey,
				EngineID:      a.cfg.Search.EngineID,
				RatePerSecond: a.cfg.Search.RatePerSecond,
			}, a.logger.Named("websearch"))
			if err != nil {
				return err
			}
			results, err := client.Search(cmd.Context(), args[0], num)
			if err != nil {
				return err
			}
			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n%s\nLink: %s\n\n", i+1, r.Title, r.Snippet, r.Link)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&num, "num", websearch.MaxResults, "Number of results (1-10)")
	return cmd
}

func newChunkCmd(a *app) *cobra.Command {
	var size, overlap int
	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Split a text file into overlapping chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			text := string(data)
			chunks := chunker.Chunk(text, size, overlap)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Original text length: %d\n", len([]rune(text)))
			fmt.Fprintf(out, "Number of chunks: %d\n", len(chunks))
			for i, c := range chunks {
				fmt.Fprintf(out, "Chunk %d (length %d): %s\n", i+1, len([]rune(c)), preview(c, 50))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", chunker.DefaultSize, "Chunk size in characters")
	cmd.Flags().IntVar(&overlap, "overlap", chunker.DefaultOverlap, "Overlap between chunks in characters")
	return cmd
}

func newYoutubeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "youtube <url>",
		Short: "Print a video's title, transcript and thumbnail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := youtube.New(nil, a.logger.Named("youtube")).Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Title: %s\n", video.Title)
			fmt.Fprintf(out, "Transcript: %s\n", preview(video.Transcript, 150))
			fmt.Fprintf(out, "Thumbnail URL: %s\n", video.ThumbnailURL)
			fmt.Fprintf(out, "Video ID: %s\n", video.VideoID)
			return nil
		},
	}
}

func newTTSCmd(a *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "tts <text>",
		Short: "Synthesize speech into the audio cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.TTS.CacheDir
			if outDir != "" {
				dir = outDir
			}
			s, err := tts.New(cmd.Context(), tts.Config{
				CacheDir:     dir,
				Voice:        a.cfg.TTS.Voice,
				LanguageCode: a.cfg.TTS.LanguageCode,
				Project:      a.cfg.TTS.Project,
			}, a.logger.Named("tts"))
			if err != nil {
				return err
			}
			hash, err := s.Synthesize(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Result hash: %s\n", hash)
			fmt.Fprintf(cmd.OutOrStdout(), "File: %s\n", s.Path(hash))
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for audio files (default from config)")
	return cmd
}

func newEmbedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "embed <text>",
		Short: "Embed a text with Vertex AI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vertex, err := embedding.NewVertexEmbedder(cmd.Context(), embedding.VertexConfig{
				Project:  a.cfg.Embedding.Project,
				Location: a.cfg.Embedding.Location,
				Model:    a.cfg.Embedding.Model,
			}, a.logger.Named("embedding"))
			if err != nil {
				return err
			}
			embedder, err := embedding.NewCache(vertex, a.cfg.Embedding.CacheSize)
			if err != nil {
				return err
			}
			v, err := embedder.Embed(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			head := v
			if len(head) > 5 {
				head = head[:5]
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Embedding dimension: %d\n", len(v))
			fmt.Fprintf(cmd.OutOrStdout(), "First few values: %v\n", head)
			return nil
		},
	}
}

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <dir>",
		Short: "Load every .txt file in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := dataloader.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Loaded %d files\n", len(data))
			if len(data) == 0 {
				return nil
			}
			names := make([]string, 0, len(data))
			for name := range data {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Fprintf(out, "\nSample essay (ID: %s):\n%s\n", names[0], preview(data[names[0]], 200))
			return nil
		},
	}
}

func newIndexDemoCmd(a *app) *cobra.Command {
	var (
		dim, count, topK int
		seed             int64
		path             string
	)
	cmd := &cobra.Command{
		Use:   "index-demo",
		Short: "Build a vector index from random vectors and search it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dim <= 0 {
				return fmt.Errorf("--dim must be positive, got %d", dim)
			}
			if count <= 0 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}
			r := rand.New(rand.NewSource(seed))
			vectors := make([][]float32, count)
			for i := range vectors {
				vectors[i] = make([]float32, dim)
				for j := range vectors[i] {
					vectors[i][j] = r.Float32()
				}
			}
			query := make([]float32, dim)
			for j := range query {
				query[j] = r.Float32()
			}

			idx, err := vectorindex.New(vectors)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added %d vectors to index\n", idx.Len())
			if err := printMatches(cmd, idx, query, topK); err != nil {
				return err
			}

			if path == "" {
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := idx.Save(path); err != nil {
				return err
			}
			loaded, err := vectorindex.Load(path)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "\nTesting loaded index:")
			return printMatches(cmd, loaded, query, topK)
		},
	}
	cmd.Flags().IntVar(&dim, "dim", 1536, "Vector dimension")
	cmd.Flags().IntVar(&count, "count", 100, "Number of random vectors")
	cmd.Flags().IntVar(&topK, "top-k", 5, "Number of results")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed")
	cmd.Flags().StringVar(&path, "path", "", "Save the index here and search the reloaded copy")
	return cmd
}

func printMatches(cmd *cobra.Command, idx *vectorindex.Index, query []float32, k int) error {
	scores, ids, err := idx.Search(query, k)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Results:")
	for i, id := range ids {
		if id >= 0 {
			fmt.Fprintf(out, "  Result %d: Score: %.4f, Index: %d\n", i+1, scores[i], id)
		}
	}
	return nil
}
