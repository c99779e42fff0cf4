package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/voicereader/voicereader/internal/bridge"
	"github.com/voicereader/voicereader/internal/reader"
	"github.com/voicereader/voicereader/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Read text sent over NATS",
	Long: paragraph(fmt.Sprintf("\n%s for read requests on NATS so editors, hotkeys and scripts can trigger reading. "+
		"Use --embedded to run without an external server.", keyword("Listen"))),
	Example: paragraph("voicereader serve --embedded\nvoicereader --remote notes.md"),
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().Bool("embedded", false, "run an in-process NATS server")
	serveCmd.Flags().String("url", "", "NATS server URL")
	_ = viper.BindPFlag("bridge.embedded", serveCmd.Flags().Lookup("embedded"))
	_ = viper.BindPFlag("bridge.url", serveCmd.Flags().Lookup("url"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := bridgeConfig()
	if err != nil {
		return err
	}
	if cfg.Embedded {
		srv, err := bridge.StartEmbedded(cfg.Port, log.Default())
		if err != nil {
			return err
		}
		defer srv.Shutdown()
		cfg.URL = srv.ClientURL()
	}

	client, err := bridge.Connect(ctx, cfg, "voicereader", log.Default())
	if err != nil {
		return err
	}
	defer client.Close()

	events, notify := ui.Events(64)
	a, err := newApp(ctx, reader.WithObserver(notify))
	if err != nil {
		return err
	}
	defer a.Close()

	service := bridge.NewService(ctx, cfg, client, a.reader, log.Default())
	if err := service.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case e := <-events:
				service.Publish(e)
			}
		}
	})
	g.Go(func() error {
		a.expireCache(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		service.Close()
		a.reader.Stop()
		return nil
	})
	if err := a.watchSettings(gctx, nil); err != nil {
		log.Warn("Live settings unavailable", "error", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s %s\n", cfg.URL, faint("("+service.Subjects().Prefix+".*)"))
	return g.Wait()
}
