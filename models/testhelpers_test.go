package models_test

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/models"
)

// setupTestDB gives each test a fresh in-memory sqlite database. One
// connection keeps every query on the same memory database.
func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := config.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	config.UseDB(db)
	config.UseRedis(nil)
	if err := models.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

// signedIn creates a profile with role and returns a context carrying its session.
func signedIn(t *testing.T, email string, role models.UserRole) (context.Context, *models.Profile) {
	t.Helper()
	ctx := context.Background()
	profile, err := models.CreateProfileWithRole(ctx, &models.NewProfile{
		Email:    email,
		Password: "secret-pw",
		FullName: strings.Split(email, "@")[0],
	}, role)
	if err != nil {
		t.Fatalf("create profile %s: %v", email, err)
	}
	session := models.Session{
		Token:     "test-" + profile.ID,
		ProfileId: profile.ID,
		Email:     profile.Email,
		Role:      profile.Role,
		FullName:  profile.FullName,
	}
	return session.WithContext(ctx), profile
}

func gemForm(weight, cut, val, buying string) *models.NewInventoryItem {
	input := &models.NewInventoryItem{GemType: models.ParseGemType("Blue Sapphire")}
	input.WeightCt = weight
	input.WeightPostCut = cut
	input.PredictValPerCt = val
	input.BuyingPrice = buying
	input.UsdRate = "300"
	return input
}

func countLogs(t *testing.T, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := config.GetDB().Model(&models.ActivityLog{}).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	return n
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("gem-ledger-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("gem-ledger-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=gem_ledger_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
