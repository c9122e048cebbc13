// ctfbot - CTF coordination bot for chat workspaces
package main

import (
	"context"
	"embed"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/ernie/ctfbot/internal/bot"
	"github.com/ernie/ctfbot/internal/config"
	"github.com/ernie/ctfbot/internal/handlers"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

//go:embed systemd/*
var systemdFiles embed.FS

var version = "dev"

const defaultConfigPath = "/etc/ctfbot/config.yml"

func main() {
	handlers.Version = version

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		cmdInit(os.Args[2:])
	case "serve":
		cmdServe(os.Args[2:])
	case "config":
		cmdConfig(os.Args[2:])
	case "version":
		fmt.Printf("ctfbot %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: ctfbot <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init [--no-systemd] [--user ctfbot]  Bootstrap system (create user, dirs, config)")
	fmt.Println("  serve                                Start the bot")
	fmt.Println("  config                               Show the effective configuration")
	fmt.Println("  version                              Show version")
	fmt.Println("  help                                 Show this help")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --config <path>    Path to configuration file (default /etc/ctfbot/config.yml)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  sudo ctfbot init")
	fmt.Println("  ctfbot serve --config /etc/ctfbot/config.yml")
}

// cmdServe starts the bot
func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfgPath := *configPath
	if cfgPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			cfgPath = defaultConfigPath
		} else {
			log.Fatalf("No config file found at %s. Use --config to specify a config file.", defaultConfigPath)
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("ctfbot %s starting...", version)

	server, err := bot.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Bot stopped: %v", err)
	}
	log.Println("Shutdown complete")
}

// cmdConfig prints the effective configuration with credentials masked
func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Chat.BotToken != "" {
		cfg.Chat.BotToken = "********"
	}
	if cfg.Chat.AppToken != "" {
		cfg.Chat.AppToken = "********"
	}
	if cfg.Store.Password != "" {
		cfg.Store.Password = "********"
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(data))
}

// detectSystemd checks if the system is running systemd
func detectSystemd() bool {
	_, err := os.Stat("/run/systemd/system")
	return err == nil
}

// systemctlRun executes a systemctl command, printing stderr on failure
func systemctlRun(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// promptToken reads a secret from the terminal without echo
func promptToken(label string) string {
	fmt.Printf("%s (leave empty to fill in later): ", label)
	token, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
	return strings.TrimSpace(string(token))
}

// cmdInit bootstraps the system: creates user, dirs, config, and systemd unit
func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	noSystemd := fs.Bool("no-systemd", false, "skip systemd unit installation")
	userName := fs.String("user", "ctfbot", "service user name")
	fs.Parse(args)

	if os.Getuid() != 0 {
		fmt.Fprintf(os.Stderr, "Error: ctfbot init must be run as root\n")
		os.Exit(1)
	}

	// Bail out if already initialized
	if _, err := os.Stat(defaultConfigPath); err == nil {
		fmt.Printf("ctfbot is already initialized (%s exists).\n", defaultConfigPath)
		fmt.Println("To re-initialize, remove the config file first.")
		return
	}

	sysUser := *userName
	useSd := !*noSystemd && detectSystemd()

	// 1. Create service user/group if they don't exist
	if _, err := user.Lookup(sysUser); err != nil {
		fmt.Printf("Creating service user '%s'...\n", sysUser)
		cmd := exec.Command("useradd", "-r", "-s", "/usr/sbin/nologin", sysUser)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating user: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Printf("Service user '%s' already exists\n", sysUser)
	}

	u, err := user.Lookup(sysUser)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error looking up user '%s': %v\n", sysUser, err)
		os.Exit(1)
	}
	uid, _ := strconv.Atoi(u.Uid)
	gid, _ := strconv.Atoi(u.Gid)

	// 2. Create directories
	dirs := []string{"/etc/ctfbot", "/var/lib/ctfbot"}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", dir, err)
			os.Exit(1)
		}
		if err := os.Chown(dir, uid, gid); err != nil {
			fmt.Fprintf(os.Stderr, "Error chowning %s: %v\n", dir, err)
			os.Exit(1)
		}
		fmt.Printf("Directory: %s\n", dir)
	}

	// 3. Collect tokens and install default config.yml
	botToken := promptToken("Bot token")
	appToken := promptToken("App-level token")

	defaultCfg := &config.Config{
		Chat: config.ChatConfig{
			APIURL:   "https://slack.com/api",
			BotToken: botToken,
			AppToken: appToken,
		},
		Store: config.StoreConfig{
			Backend: "sqlite",
			Path:    "/var/lib/ctfbot/ctfbot.db",
		},
		Bus: config.BusConfig{
			Port:    4333,
			Workers: 4,
		},
		OptionsPath: "/var/lib/ctfbot/options.yml",
	}
	if err := config.Save(defaultConfigPath, defaultCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	os.Chown(defaultConfigPath, uid, gid)
	fmt.Printf("Config: %s\n", defaultConfigPath)

	// 4. Install systemd unit if enabled
	if useSd {
		data, err := systemdFiles.ReadFile("systemd/ctfbot.service")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading embedded unit: %v\n", err)
			os.Exit(1)
		}
		content := string(data)
		if sysUser != "ctfbot" {
			content = strings.ReplaceAll(content, "User=ctfbot", "User="+sysUser)
			content = strings.ReplaceAll(content, "Group=ctfbot", "Group="+sysUser)
		}
		dest := filepath.Join("/etc/systemd/system", "ctfbot.service")
		if err := os.WriteFile(dest, []byte(content), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", dest, err)
			os.Exit(1)
		}
		fmt.Printf("Systemd: %s\n", dest)

		fmt.Println("Running systemctl daemon-reload...")
		systemctlRun("daemon-reload")

		fmt.Println("Enabling ctfbot.service...")
		systemctlRun("enable", "ctfbot.service")
	} else {
		fmt.Println("Systemd: skipped")
	}

	// 5. Print next steps
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review /etc/ctfbot/config.yml")
	fmt.Println("  2. Add the first admin to /var/lib/ctfbot/options.yml (admin_users)")
	if useSd {
		fmt.Println("  3. Start the bot: sudo systemctl start ctfbot")
	} else {
		fmt.Println("  3. Start the bot: ctfbot serve")
	}
}
