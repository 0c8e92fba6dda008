package cmd

import (
	"os"

	"settlement-reconciliation-service/cmd/reconciler/config"
	"settlement-reconciliation-service/internal/reconciler"
	"settlement-reconciliation-service/internal/server"
	"settlement-reconciliation-service/pkg/errors"
	"settlement-reconciliation-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the serve command
var (
	listenAddr   string
	uploadDir    string
	keepUploads  bool
	allowOrigins []string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload and reconciliation web server",
	Long: `Serve starts a web server with an upload form for the statement and
settlement files, an HTML results page and a JSON API.

The listen address is taken from --addr, then from the PORT environment
variable, then defaults to :5000.

Examples:
  reconciler serve
  PORT=8080 reconciler serve
  reconciler serve --addr 127.0.0.1:5000 --upload-dir /var/lib/reconciler --keep-uploads`,

	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default: :$PORT or :5000)")
	serveCmd.Flags().StringVar(&uploadDir, "upload-dir", "uploads", "directory receiving uploaded files")
	serveCmd.Flags().BoolVar(&keepUploads, "keep-uploads", false, "keep uploaded files after processing")
	serveCmd.Flags().StringSliceVar(&allowOrigins, "allow-origin", []string{}, "origins allowed to call the API from a browser")

	for _, name := range []string{"addr", "upload-dir", "keep-uploads", "allow-origin"} {
		viper.BindPFlag(name, serveCmd.Flags().Lookup(name))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	serverConfig, err := config.CreateServerConfig(
		viper.GetString("upload-dir"),
		viper.GetBool("keep-uploads"),
		viper.GetStringSlice("allow-origin"),
	)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "server", nil, err)
	}

	service, err := reconciler.NewReconciliationService(reconciler.DefaultConfig())
	if err != nil {
		return err
	}

	if !viper.GetBool("verbose") {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := server.New(serverConfig, service)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "server", serverConfig, err)
	}

	addr := config.ResolveListenAddr(viper.GetString("addr"), os.Getenv("PORT"))
	logger.Infof("Serving reconciliation UI on %s (uploads in %s)", addr, serverConfig.UploadDir)
	if err := srv.Run(cmd.Context(), addr); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "serve", err).
			WithContext("addr", addr)
	}
	return nil
}
