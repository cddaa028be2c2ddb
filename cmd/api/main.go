package main

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/avero-reporting/api/internal/config"
	"github.com/sngm3741/avero-reporting/api/internal/server"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.MongoURI).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		cfg.Logger.Fatalf("MongoDB 接続に失敗しました: %v", err)
	}

	components, err := server.NewComponents(ctx, cfg, client, server.ComponentOptions{})
	if err != nil {
		cfg.Logger.Fatalf("コンポーネント初期化に失敗しました: %v", err)
	}

	app := server.New(cfg, client, components)
	if err := app.Run(); err != nil {
		cfg.Logger.Fatalf("サーバー起動に失敗: %v", err)
	}
}
