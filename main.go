package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/captrail/server/capture"
	"github.com/captrail/server/export"
	"github.com/captrail/server/logger"
	captmcp "github.com/captrail/server/mcp"
	"github.com/captrail/server/meeting"
	"github.com/captrail/server/middleware"
	"github.com/captrail/server/settings"
	"github.com/captrail/server/ws"
)

const version = "0.3.0"

var dataDir string

func main() {
	home, _ := os.UserHomeDir()
	defaultData := envOr("DATA_DIR", filepath.Join(home, ".captrail"))

	rootCmd := &cobra.Command{
		Use:   "captrail",
		Short: "Companion server that captures and archives live meeting captions",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", defaultData, "data directory")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(mcpCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type stores struct {
	meetings   *meeting.Store
	settings   *settings.Store
	downloader *export.Downloader
}

func openStores() (*stores, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	meetings, err := meeting.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open meeting store: %w", err)
	}
	settingsStore, err := settings.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}

	return &stores{
		meetings:   meetings,
		settings:   settingsStore,
		downloader: export.NewDownloader(dataDir),
	}, nil
}

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the WebSocket capture server",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := os.Getenv("AUTH_TOKEN")
			if token == "" {
				return fmt.Errorf("AUTH_TOKEN environment variable is required")
			}

			devMode := os.Getenv("DEV") == "true"
			logger.Init(logger.Config{DataDir: dataDir, DevMode: devMode})

			s, err := openStores()
			if err != nil {
				return err
			}

			// Edits to settings.json on disk take effect without a restart.
			if err := s.settings.Watch(); err != nil {
				slog.Warn("settings file watch unavailable", "error", err)
			}
			defer s.settings.Close()

			rpcHandler := ws.NewRPCHandler(token, version, devMode, s.meetings, s.settings, s.downloader, capture.Config{})
			defer rpcHandler.Stop()

			mux := http.NewServeMux()
			mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			mux.Handle("GET /ws", rpcHandler)

			handler := middleware.Auth(token)(mux)

			printPairingInfo(port, token)
			slog.Info("server starting", "port", port, "dataDir", dataDir)
			return http.ListenAndServe(":"+port, handler)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", envOr("PORT", "8080"), "listen port")
	return cmd
}

// printPairingInfo renders the connection URL as a QR code so the
// extension can be pointed at this server from a phone or second
// machine. Skipped when stdout is not a terminal.
func printPairingInfo(port, token string) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}

	url := fmt.Sprintf("ws://localhost:%s/ws?token=%s", port, token)
	fmt.Printf("Pair the capture extension with:\n\n  %s\n\n", url)
	qrterminal.GenerateHalfBlock(url, qrterminal.L, os.Stdout)
	fmt.Println()
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved meetings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStores()
			if err != nil {
				return err
			}

			records, err := s.meetings.List()
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println("No saved meetings yet.")
				return nil
			}

			for _, r := range records {
				fmt.Printf("%-14d  %-10s  %s-%s  %s (%d captions)\n",
					r.ID, r.Date, r.StartTime, r.EndTime, r.Title, len(r.Transcripts))
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [meeting-id]",
		Short: "Export a saved meeting's transcript to a text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid meeting id: %s", args[0])
			}

			s, err := openStores()
			if err != nil {
				return err
			}

			record, found, err := s.meetings.Get(id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("meeting not found: %d", id)
			}

			style := s.settings.Get().NameStyle
			path, err := s.downloader.Save(record.Transcripts, record.Title, record.Date, style)
			if err != nil {
				return err
			}

			fmt.Printf("Exported to %s\n", path)
			return nil
		},
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve saved meetings over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// MCP owns stdout, so logs must go elsewhere.
			logger.Init(logger.Config{DataDir: dataDir})

			s, err := openStores()
			if err != nil {
				return err
			}

			return captmcp.NewServer(s.meetings, s.downloader, s.settings).Run(version)
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
