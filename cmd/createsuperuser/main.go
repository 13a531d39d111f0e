// createsuperuser 创建具有管理权限的账户。
//
// 用法:
//
//	createsuperuser -email admin@example.com -password secret123
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"recipebox/internal/account"
	"recipebox/internal/config"
	"recipebox/internal/model"

	"github.com/joho/godotenv"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	email := flag.String("email", "", "管理员邮箱（必填）")
	password := flag.String("password", "", "管理员密码（必填）")
	configPath := flag.String("config", "", "配置文件路径 (默认 configs/config.json)")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: createsuperuser -email <email> -password <password>")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	db, err := gorm.Open(gormmysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect database: %v\n", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		fmt.Fprintf(os.Stderr, "auto migrate: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := account.NewGormStore(db).CreateSuperuser(ctx, *email, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create superuser: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("superuser created: %s (id=%d)\n", user.Email, user.ID)
}
