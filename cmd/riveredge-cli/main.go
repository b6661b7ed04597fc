package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riveredge/riveredge/internal/core/config"
	"github.com/riveredge/riveredge/internal/core/logic"
	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/internal/core/repo"
	"github.com/riveredge/riveredge/pkg/cache"
	"github.com/riveredge/riveredge/pkg/database"
	"github.com/riveredge/riveredge/pkg/id"
	"github.com/riveredge/riveredge/pkg/version"
)

var (
	configFile string

	superAdminUsername string
	superAdminPassword string

	tenantName      string
	tenantDomain    string
	tenantPlan      string
	tenantSeats     int
	tenantAdminUser string
)

var rootCmd = &cobra.Command{
	Use:   "riveredge-cli",
	Short: "riveredge-cli is the platform operations tool",
	Long:  "riveredge-cli bootstraps the platform superadmin and manages tenants from the command line",
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			return
		}
	},
}

var superAdminInitCmd = &cobra.Command{
	Use:   "superadmin-init",
	Short: "create the platform superadmin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logic.ValidatePassword(superAdminPassword); err != nil {
			return err
		}
		repos, appConf, err := openRepositories()
		if err != nil {
			return err
		}
		hash, err := logic.HashPassword(superAdminPassword, appConf.Http.Auth.BcryptCost)
		if err != nil {
			return err
		}
		sa := &model.PlatformSuperAdmin{
			BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
			Username:  superAdminUsername,
			Password:  hash,
			IsActive:  model.FlagEnabled,
		}
		if err := repos.SuperAdmin.CreateSuperAdmin(sa); err != nil {
			return err
		}
		fmt.Printf("superadmin %q created, id: %s\n", sa.Username, sa.ExternalId)
		return nil
	},
}

var tenantCreateCmd = &cobra.Command{
	Use:   "tenant-create",
	Short: "provision a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		repos, appConf, err := openRepositories()
		if err != nil {
			return err
		}
		tenantLogic := logic.NewTenantLogic(repos.Tenant, repos.User)
		tenant, err := tenantLogic.CreateTenant(&model.CreateTenantReq{
			Name:     tenantName,
			Domain:   tenantDomain,
			Plan:     tenantPlan,
			MaxUsers: tenantSeats,
		})
		if err != nil {
			return err
		}
		fmt.Printf("tenant %q created, id: %s, domain: %s\n", tenant.Name, tenant.ExternalId, tenant.Domain)

		if tenantAdminUser == "" {
			return nil
		}
		tempPassword := id.ShortId() + id.ShortId()
		hash, err := logic.HashPassword(tempPassword, appConf.Http.Auth.BcryptCost)
		if err != nil {
			return err
		}
		admin := &model.User{
			TenantModel: model.TenantModel{
				BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
				TenantId:  tenant.ID,
			},
			Username:      tenantAdminUser,
			Password:      hash,
			IsTenantAdmin: model.FlagEnabled,
		}
		if err := repos.User.AddUser(admin); err != nil {
			return err
		}
		fmt.Printf("tenant admin %q created, temporary password: %s\n", admin.Username, tempPassword)
		return nil
	},
}

func openRepositories() (*repo.Repositories, *config.AppConfig, error) {
	appConf := config.NewConf(configFile)
	appConf.Http.SetDefaults()
	db, err := database.ProvideDatabase(appConf.Database)
	if err != nil {
		return nil, nil, err
	}
	redisClient, err := cache.NewRedis(appConf.Redis)
	if err != nil {
		return nil, nil, err
	}
	return repo.NewRepositories(db, cache.NewRedisCache(redisClient)), &appConf, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "conf.d/config.toml", "conf file path")

	superAdminInitCmd.Flags().StringVar(&superAdminUsername, "username", "admin", "superadmin username")
	superAdminInitCmd.Flags().StringVar(&superAdminPassword, "password", "", "superadmin password")
	_ = superAdminInitCmd.MarkFlagRequired("password")

	tenantCreateCmd.Flags().StringVar(&tenantName, "name", "", "tenant display name")
	tenantCreateCmd.Flags().StringVar(&tenantDomain, "domain", "", "tenant login domain")
	tenantCreateCmd.Flags().StringVar(&tenantPlan, "plan", "trial", "tenant plan")
	tenantCreateCmd.Flags().IntVar(&tenantSeats, "max-users", 0, "seat cap, 0 for unlimited")
	tenantCreateCmd.Flags().StringVar(&tenantAdminUser, "admin-username", "", "bootstrap a tenant admin with a generated temporary password")
	_ = tenantCreateCmd.MarkFlagRequired("name")
	_ = tenantCreateCmd.MarkFlagRequired("domain")

	rootCmd.AddCommand(version.VersionCmd)
	rootCmd.AddCommand(superAdminInitCmd)
	rootCmd.AddCommand(tenantCreateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
