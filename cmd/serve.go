package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/jd-comparator/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the comparison form as a local web page",
	Run: func(_ *cobra.Command, _ []string) {
		config, logger, client := setup()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := web.New(client, logger.Named("web"))
		if err := server.Run(ctx, config.Server.Listen); err != nil {
			logger.Fatal("serving the web ui", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default is 127.0.0.1:8080)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}
