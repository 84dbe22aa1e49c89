package app

import (
	"github.com/felixgeelhaar/instancer/internal/adapters/command"
	"github.com/felixgeelhaar/instancer/internal/config"
	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/provider/accounts"
	"github.com/felixgeelhaar/instancer/internal/provider/apt"
	"github.com/felixgeelhaar/instancer/internal/provider/files"
	"github.com/felixgeelhaar/instancer/internal/provider/git"
	"github.com/felixgeelhaar/instancer/internal/provider/npm"
	"github.com/felixgeelhaar/instancer/internal/provider/python"
	"github.com/felixgeelhaar/instancer/internal/provider/ssh"
	"github.com/felixgeelhaar/instancer/internal/provider/system"
	"github.com/felixgeelhaar/instancer/internal/provider/systemd"
)

// Step labels, in execution order.
const (
	LabelDatabaseEngine = "Install database engine"
	LabelTimezone       = "Set timezone"
	LabelAccounts       = "Create system user and database role"
	LabelSource         = "Fetch application source"
	LabelSystemPackages = "Install system packages"
	LabelVirtualenv     = "Build virtual runtime and dependencies"
	LabelCSSToolchain   = "Install CSS toolchain"
	LabelDirectories    = "Create directories"
	LabelDeployKey      = "Generate deploy keypair"
	LabelAddons         = "Fetch addons repository"
	LabelConfigFile     = "Render configuration file"
	LabelServiceUnit    = "Render service unit"
	LabelOwnership      = "Fix ownership and permissions"
	LabelActivate       = "Activate service"
)

// Host bundles the adapters step bodies act through.
type Host struct {
	Runner   ports.CommandRunner
	FS       ports.FileSystem
	Accounts ports.AccountDirectory
}

// BuildPlan registers the provisioning steps in order. The same cfg always
// yields the same labels and indices, so checkpoints stay meaningful across
// runs.
func BuildPlan(cfg *config.Config, host Host) *execution.Registry {
	asUser := func(r ports.CommandRunner, user string) ports.CommandRunner {
		return command.AsUser(r, user)
	}

	reg := execution.NewRegistry()
	reg.Add(LabelDatabaseEngine, apt.NewPackagesStep(cfg.Database.Packages, host.Runner))
	reg.Add(LabelTimezone, system.NewTimezoneStep(cfg.System.Timezone, host.Runner))
	reg.Add(LabelAccounts, accounts.NewAccountStep(host.Runner, host.Accounts, host.FS))
	reg.Add(LabelSource, git.NewCloneStep(host.Runner, host.FS,
		func(id identity.Identity) git.CloneSpec {
			return git.CloneSpec{
				URL:    cfg.Source.RepoURL,
				Dest:   id.SourceDir,
				Branch: id.Version,
				Depth:  cfg.Source.Depth,
			}
		},
		git.WithDescription("git clone application source"),
	))
	reg.Add(LabelSystemPackages, apt.NewPackagesStep(cfg.System.Packages, host.Runner))
	reg.Add(LabelVirtualenv, python.NewVirtualenvStep(host.Runner, host.FS,
		cfg.Python.Interpreter, python.ParsePackages(cfg.Python.ExtraPackages)))
	reg.Add(LabelCSSToolchain, npm.NewGlobalPackagesStep(host.Runner, npm.CSSToolchain))
	reg.Add(LabelDirectories, files.NewDirectoriesStep(host.FS, host.Accounts))
	reg.Add(LabelDeployKey, ssh.NewKeypairStep(host.FS, host.Accounts, cfg.Service.KeyBits))
	reg.Add(LabelAddons, git.NewCloneStep(host.Runner, host.FS,
		func(id identity.Identity) git.CloneSpec {
			return git.CloneSpec{
				URL:    id.AddonsRepoURL,
				Dest:   id.AddonsDir,
				Branch: id.Version,
				Depth:  cfg.Source.Depth,
				SSHKey: id.SSHKeyPath,
				RunAs:  id.Name,
			}
		},
		git.WithUserRunner(asUser),
		git.WithDescription("git clone addons with deploy key"),
	))
	reg.Add(LabelConfigFile, files.NewConfigFileStep(host.FS, host.Accounts, files.ConfigOptions{
		AdminPassword: cfg.Service.AdminPassword,
		Workers:       cfg.Service.Workers,
	}))
	reg.Add(LabelServiceUnit, systemd.NewUnitStep(host.FS, cfg.Service.After...))
	reg.Add(LabelOwnership, files.NewOwnershipStep(host.FS, host.Accounts))
	reg.Add(LabelActivate, systemd.NewActivateStep(host.Runner))
	return reg
}
