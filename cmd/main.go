package main

import (
	goflag "flag"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

const serviceName = "water_service"

func main() {
	rootCmd := &cobra.Command{
		Use:           "water-service",
		Short:         "Regional water demand projection service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	klogFlags := goflag.NewFlagSet("klog", goflag.ExitOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(projectCmd())

	if err := rootCmd.Execute(); err != nil {
		klog.ErrorS(err, "Command failed")
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}
