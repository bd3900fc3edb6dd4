package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cartCmd "github.com/Alturino/storefront/cart/cmd"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/log"
	productCmd "github.com/Alturino/storefront/product/cmd"
)

func Start() {
	logger := log.InitLogger(os.Getenv("APPLICATION_LOG_PATH"), os.Getenv("APPLICATION_ENV")).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_MAIN_STOREFRONT).
		Str(constants.KEY_TAG, "main Start").
		Logger()

	logger.Info().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)

	var (
		migrateConfig string
		migrateDown   bool
		tokenConfig   string
		tokenUserID   string
		tokenTTL      time.Duration
	)

	migrateCommand := &cobra.Command{
		Use:   "migrate",
		Short: "Apply postgres migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), migrateConfig, migrateDown)
		},
	}
	migrateCommand.Flags().StringVar(&migrateConfig, "config", constants.APP_CART_SERVICE, "config name under ./env")
	migrateCommand.Flags().BoolVar(&migrateDown, "down", false, "revert every migration")

	tokenCommand := &cobra.Command{
		Use:   "dev-token",
		Short: "Print a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevToken(cmd.OutOrStdout(), tokenConfig, tokenUserID, tokenTTL)
		},
	}
	tokenCommand.Flags().StringVar(&tokenConfig, "config", constants.APP_CART_SERVICE, "config name under ./env")
	tokenCommand.Flags().StringVar(&tokenUserID, "user", "", "user id, random when empty")
	tokenCommand.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd := &cobra.Command{Use: "storefront", SilenceUsage: true}
	commands := []*cobra.Command{
		{
			Use:   "cart",
			Short: "Run cart service",
			Run: func(cmd *cobra.Command, args []string) {
				cartCmd.RunCartService(cmd.Context())
			},
		},
		{
			Use:   "product",
			Short: "Run product service",
			Run: func(cmd *cobra.Command, args []string) {
				productCmd.RunProductService(cmd.Context())
			},
		},
		migrateCommand,
		tokenCommand,
	}
	rootCmd.AddCommand(commands...)
	if err := rootCmd.ExecuteContext(c); err != nil {
		logger.Fatal().Err(err).Msgf("error when executing command=%s", err.Error())
	}
}
