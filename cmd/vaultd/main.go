package main

import (
	"context"
	"log"
	"time"

	"github.com/Thedy09/nkwa-vault-sub001/internal/config"
	"github.com/Thedy09/nkwa-vault-sub001/internal/domain"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/audit"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/cachemem"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/cacheredis"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/db"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/histmem"
	httpinfra "github.com/Thedy09/nkwa-vault-sub001/internal/infra/http"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ipfsstore"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger/consensus"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger/demo"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/ledger/registry"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/mode"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/policy"
	"github.com/Thedy09/nkwa-vault-sub001/internal/infra/retry"
	"github.com/Thedy09/nkwa-vault-sub001/internal/usecase"
)

func main() {
	cfg := config.FromEnv()

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	contentStore, anchorLedger, settled := buildAdapters(cfg)
	log.Printf("vaultd: running in %s mode", settled)

	exec := retry.NewExecutor(cfg.RetryMaxAttempts, cfg.RetryBaseDelay, cfg.RetryMaxDelay)

	engine, err := policy.NewEngine(context.Background(), cfg.PolicyModulePath)
	if err != nil {
		log.Fatalf("failed to build submission policy: %v", err)
	}
	gate := policy.NewGate(engine)

	var verificationCache usecase.VerificationCache
	if cfg.RedisAddr != "" {
		redisCache, err := cacheredis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("failed to connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		verificationCache = redisCache
	} else {
		verificationCache = cachemem.NewVerificationCache()
	}
	certCache := cachemem.NewCertificateCache()

	var certRepo usecase.CertificateRepository
	var rewardRepo usecase.RewardRepository
	if store.Available() {
		certRepo = db.NewCertificateRepository(store.DB)
		rewardRepo = db.NewRewardRepository(store.DB)
	} else {
		certRepo = histmem.NewCertificateRepository()
		rewardRepo = histmem.NewRewardRepository()
	}

	recorder := audit.NewRecorder()

	certify := &usecase.CertifyContent{
		Store:        contentStore,
		Ledger:       anchorLedger,
		Certificates: certRepo,
		Cache:        certCache,
		Gate:         gate,
		Retry:        exec,
		Audit:        recorder,
	}
	verify := &usecase.VerifyContent{
		Store:    contentStore,
		Ledger:   anchorLedger,
		Cache:    verificationCache,
		Retry:    exec,
		Audit:    recorder,
		CacheTTL: cfg.CacheTTL,
	}
	query := &usecase.CertificateQuery{
		Ledger:       anchorLedger,
		Certificates: certRepo,
		Cache:        certCache,
		Retry:        exec,
	}
	rewards := &usecase.RewardService{
		Ledger:  anchorLedger,
		Rewards: rewardRepo,
		Retry:   exec,
		Audit:   recorder,
	}

	srv := httpinfra.NewServerWithDeps(cfg, httpinfra.ServerDeps{
		Certify: certify,
		Verify:  verify,
		Query:   query,
		Rewards: rewards,
		Mode:    settled,
		Store:   store,
	})
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// buildAdapters settles the live/demo decision once and returns the store
// and ledger pair for that mode. Live requires every adapter to be both
// configured and reachable; anything less means the demo pair, never a mix.
func buildAdapters(cfg config.Config) (usecase.ContentStore, ledger.Ledger, domain.Mode) {
	configured := cfg.StorageConfigured() && cfg.LedgerConfigured()
	if !configured {
		ctrl := mode.NewController(false)
		return ipfsstore.NewMemStore(cfg.IPFSGatewayURL), demo.New(), ctrl.Decide(context.Background())
	}

	ipfsClient, err := ipfsstore.NewClient(cfg.IPFSAPIAddr, cfg.IPFSGatewayURL)
	if err != nil {
		log.Printf("vaultd: ipfs client init failed, falling back to demo: %v", err)
		return ipfsstore.NewMemStore(cfg.IPFSGatewayURL), demo.New(), domain.ModeDemo
	}

	var liveLedger ledger.Ledger
	var ledgerProbe mode.Prober
	switch cfg.LedgerBackend {
	case config.BackendRegistry:
		client, err := registry.NewClient(registry.Config{
			RPCURL:       cfg.RegistryRPCURL,
			ContractAddr: cfg.RegistryContractAddr,
			SignerAddr:   cfg.RegistrySignerAddr,
		})
		if err != nil {
			log.Printf("vaultd: registry client init failed, falling back to demo: %v", err)
			return ipfsstore.NewMemStore(cfg.IPFSGatewayURL), demo.New(), domain.ModeDemo
		}
		liveLedger, ledgerProbe = client, client
	default:
		client, err := consensus.NewClient(consensus.Config{
			BaseURL:    cfg.ConsensusAPIURL,
			TopicID:    cfg.ConsensusTopicID,
			TokenID:    cfg.ConsensusTokenID,
			OperatorID: cfg.ConsensusOperatorID,
		})
		if err != nil {
			log.Printf("vaultd: consensus client init failed, falling back to demo: %v", err)
			return ipfsstore.NewMemStore(cfg.IPFSGatewayURL), demo.New(), domain.ModeDemo
		}
		liveLedger, ledgerProbe = client, client
	}

	ctrl := mode.NewController(true, ipfsClient, ledgerProbe)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	settled := ctrl.Decide(ctx)
	if settled != domain.ModeLive {
		return ipfsstore.NewMemStore(cfg.IPFSGatewayURL), demo.New(), settled
	}
	return ipfsClient, liveLedger, settled
}
