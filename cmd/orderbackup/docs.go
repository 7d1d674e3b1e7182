package main

//go:generate swag init -g cmd/orderbackup/main.go -o docs

// @title           Order Backup API
// @version         0.1.0
// @description     Sync triggers, order revisions, failed order retries and data quality for the order backup engine.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
