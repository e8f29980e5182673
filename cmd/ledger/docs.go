package main

// @title Part Ledger API
// @version 1.0
// @description Reconciles BOM exports into a job, part and location ledger and tracks placement progress
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://github.com/tair/part-ledger
// @contact.email support@example.com

// @license.name MIT
// @license.url https://github.com/tair/part-ledger/blob/main/LICENSE

// @host localhost:8084
// @BasePath /

// @tag.name jobs
// @tag.description Import, mapping and job management endpoints

// @tag.name assignments
// @tag.description Placement progress endpoints

// @tag.name reports
// @tag.description Stats, part lists, scan lookup and export endpoints

// @tag.name backup
// @tag.description Whole-ledger backup and restore
