package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"propchain/config"
	"propchain/core"
	nhstate "propchain/core/state"
	"propchain/crypto"
	"propchain/observability/logging"
	"propchain/rpc"
	"propchain/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	logger := logging.Setup("propchaind")

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	admin, err := resolveAdmin(cfg)
	if err != nil {
		logger.Error("Failed to resolve admin account", slog.Any("error", err))
		os.Exit(1)
	}

	node := core.NewNode(db, admin)

	if cfg.ComplianceRegistry != "" {
		if err := seedComplianceRegistry(db, cfg.ComplianceRegistry); err != nil {
			logger.Error("Failed to seed compliance registry", slog.Any("error", err))
			os.Exit(1)
		}
	}

	logger.Info("registry node starting",
		slog.String("network", cfg.NetworkName),
		slog.String("rpc", cfg.RPCAddress),
		slog.String("admin", crypto.NewAddress(crypto.AccountPrefix, adminBytes(admin)).String()),
	)

	server := rpc.NewServer(node)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func adminBytes(admin [20]byte) []byte {
	return admin[:]
}

// resolveAdmin prefers an explicit AdminAddress from the config and falls
// back to the address derived from the node key, generating the key on first
// start.
func resolveAdmin(cfg *config.Config) ([20]byte, error) {
	if cfg.AdminAddress != "" {
		addr, err := crypto.DecodeAddress(cfg.AdminAddress)
		if err != nil {
			return [20]byte{}, fmt.Errorf("invalid AdminAddress: %w", err)
		}
		return addr.Array(), nil
	}
	key, err := crypto.LoadOrCreateKey(cfg.NodeKeyPath)
	if err != nil {
		return [20]byte{}, err
	}
	return key.PubKey().Address().Array(), nil
}

// seedComplianceRegistry writes the configured oracle URL into state when no
// value has been set yet, so a freshly provisioned node starts gated without
// requiring an admin RPC call.
func seedComplianceRegistry(db storage.Database, url string) error {
	manager := nhstate.NewManager(db)
	_, ok, err := manager.ComplianceOracle()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := manager.SetComplianceOracle(url); err != nil {
		return err
	}
	return manager.Commit()
}
