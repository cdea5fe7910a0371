package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openmfg/planner/pkg/application/services/planning"
	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/infrastructure/config"
	"github.com/openmfg/planner/pkg/infrastructure/logging"
	csvrepo "github.com/openmfg/planner/pkg/infrastructure/repositories/csv"
	"github.com/openmfg/planner/pkg/infrastructure/repositories/memory"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to YAML config file")
		scenarioDir = flag.String(
			"scenario",
			"",
			"Path to scenario directory containing CSV files",
		)
		productsFile    = flag.String("products", "", "Path to products CSV file")
		bomFile         = flag.String("bom", "", "Path to BOM CSV file")
		inventoryFile   = flag.String("inventory", "", "Path to inventory CSV file")
		demandsFile     = flag.String("demands", "", "Path to demands CSV file")
		conversionsFile = flag.String("conversions", "", "Path to unit conversions CSV file (optional)")
		format          = flag.String("format", "text", "Output format: text, json")
		verbose         = flag.Bool("verbose", false, "Enable verbose logging")
	)

	flag.Parse()

	if err := run(runConfig{
		ConfigFile:      *configFile,
		ScenarioDir:     *scenarioDir,
		ProductsFile:    *productsFile,
		BOMFile:         *bomFile,
		InventoryFile:   *inventoryFile,
		DemandsFile:     *demandsFile,
		ConversionsFile: *conversionsFile,
		Format:          *format,
		Verbose:         *verbose,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runConfig struct {
	ConfigFile      string
	ScenarioDir     string
	ProductsFile    string
	BOMFile         string
	InventoryFile   string
	DemandsFile     string
	ConversionsFile string
	Format          string
	Verbose         bool
}

func run(rc runConfig) error {
	cfg, err := config.Load(rc.ConfigFile)
	if err != nil {
		return err
	}
	if rc.Verbose {
		cfg.Logging.Level = string(logging.LevelDebug)
	}
	logger := logging.New(cfg.LoggerConfig("planner"))

	resolveFile := func(explicit, name string) string {
		if explicit != "" {
			return explicit
		}
		if rc.ScenarioDir != "" {
			return filepath.Join(rc.ScenarioDir, name)
		}
		return ""
	}

	productsFile := resolveFile(rc.ProductsFile, "products.csv")
	bomFile := resolveFile(rc.BOMFile, "bom.csv")
	inventoryFile := resolveFile(rc.InventoryFile, "inventory.csv")
	demandsFile := resolveFile(rc.DemandsFile, "demands.csv")
	if productsFile == "" || bomFile == "" || inventoryFile == "" || demandsFile == "" {
		return fmt.Errorf("products, BOM, inventory and demands files are required (use -scenario or the individual flags)")
	}

	loader := csvrepo.NewLoader()

	products, err := loader.LoadProducts(productsFile)
	if err != nil {
		return err
	}
	boms, err := loader.LoadBOMs(bomFile)
	if err != nil {
		return err
	}
	inventory, err := loader.LoadInventory(inventoryFile)
	if err != nil {
		return err
	}
	demands, err := loader.LoadDemands(demandsFile)
	if err != nil {
		return err
	}

	var conversions []entities.UnitConversion
	conversionsFile := resolveFile(rc.ConversionsFile, "conversions.csv")
	if rc.ConversionsFile != "" {
		conversions, err = loader.LoadConversions(conversionsFile)
		if err != nil {
			return err
		}
	} else if conversionsFile != "" {
		if _, statErr := os.Stat(conversionsFile); statErr == nil {
			conversions, err = loader.LoadConversions(conversionsFile)
			if err != nil {
				return err
			}
		}
	}

	productRepo := memory.NewProductRepository()
	for _, p := range products {
		productRepo.AddProduct(p)
	}
	for _, b := range boms {
		productRepo.AddBOM(b)
	}
	inventoryRepo := memory.NewInventoryRepository(cfg.Planning.StrictInventory)
	for _, lvl := range inventory {
		inventoryRepo.SetLevel(lvl)
	}

	service := planning.NewService(
		planning.Config{
			Options: planning.Options{
				CascadeDueDates: cfg.Planning.CascadeDueDates,
				DefaultPolicy:   cfg.DefaultPolicy(),
			},
			MaxLevels: cfg.Planning.MaxLevels,
		},
		productRepo,
		inventoryRepo,
		nil,
		entities.NewUnitConverter(conversions),
		logger,
		nil,
		nil,
	)

	result, err := service.RunMRP(context.Background(), demands)
	if err != nil {
		return err
	}

	return writeResult(os.Stdout, result, rc.Format)
}
