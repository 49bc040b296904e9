package commands

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/livetemplate/accordion/internal/config"
	"github.com/livetemplate/accordion/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	var (
		port     int
		host     string
		watch    bool
		debug    bool
		operator string
		apiOn    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the widget page",
		Long: `Serve the accordion widget on / with its WebSocket on /ws.

Settings applied from the widget's settings pane are saved back to the
config file and pushed to every open page. With --watch, edits to the
config file are picked up the same way.`,
		Example: `  # Serve with accordion.yaml from the current directory
  accordion serve

  # Serve on another port, reloading on config edits
  accordion serve --port 9000 --watch

  # Also expose the list REST API
  accordion serve --api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}

			// Flags override config
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("host") {
				cfg.Server.Host = host
			}
			if flags.Changed("watch") {
				cfg.Server.Watch = watch
			}
			if flags.Changed("debug") {
				cfg.Server.Debug = debug
			}
			if apiOn {
				if cfg.API == nil {
					cfg.API = &config.APIConfig{}
				}
				cfg.API.Enabled = true
			}
			config.SetOperator(operator)

			s, err := app.openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			srv, err := server.New(cfg, app.configFile(), s)
			if err != nil {
				return err
			}
			defer srv.Close()

			if cfg.Server.Watch {
				if err := srv.EnableWatch(); err != nil {
					return err
				}
			}

			addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Accordion widget\n\n")
			fmt.Fprintf(out, "Store:  %s\n", s.Name())
			if list := cfg.Widget.List; list != "" {
				fmt.Fprintf(out, "List:   %s\n", list)
			}
			fmt.Fprintf(out, "Config: %s\n", app.configFile())
			if cfg.IsAPIEnabled() {
				fmt.Fprintf(out, "API:    http://%s/api/lists\n", addr)
			}
			fmt.Fprintf(out, "\nServing on http://%s\n", addr)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	cmd.Flags().StringVar(&host, "host", "localhost", "host to bind")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload when the config file changes")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug mode")
	cmd.Flags().StringVarP(&operator, "operator", "o", "", "display name shown as the signed-in user (default: $USER)")
	cmd.Flags().BoolVar(&apiOn, "api", false, "serve the list REST API on /api/lists")
	return cmd
}
