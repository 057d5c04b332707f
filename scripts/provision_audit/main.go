// provision_audit cross-checks the credential and domain stores for
// provisioning drift: identities without a role profile and profiles
// without an identity. Run it after any PARTIAL_PROVISIONING_FAILURE
// to find the rows needing manual cleanup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type orphan struct {
	Username string `db:"username"`
	Role     string `db:"role"`
}

func main() {
	var (
		credentialDSN string
		domainDSN     string
		timeout       time.Duration
		remove        bool
	)

	flag.StringVar(&credentialDSN, "credential-dsn", os.Getenv("CRED_DB_DSN"), "credential database DSN")
	flag.StringVar(&domainDSN, "domain-dsn", os.Getenv("DOMAIN_DB_DSN"), "domain database DSN")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	flag.BoolVar(&remove, "remove", false, "delete orphaned identities instead of only reporting them")
	flag.Parse()

	if credentialDSN == "" || domainDSN == "" {
		log.Fatal("both -credential-dsn and -domain-dsn are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	credentialDB, err := sqlx.ConnectContext(ctx, "postgres", credentialDSN)
	if err != nil {
		log.Fatalf("connect credential database: %v", err)
	}
	defer credentialDB.Close()

	domainDB, err := sqlx.ConnectContext(ctx, "postgres", domainDSN)
	if err != nil {
		log.Fatalf("connect domain database: %v", err)
	}
	defer domainDB.Close()

	orphanIdentities, err := findOrphanIdentities(ctx, credentialDB, domainDB)
	if err != nil {
		log.Fatalf("audit identities: %v", err)
	}
	orphanProfiles, err := findOrphanProfiles(ctx, credentialDB, domainDB)
	if err != nil {
		log.Fatalf("audit profiles: %v", err)
	}

	for _, o := range orphanIdentities {
		fmt.Printf("identity without profile: %s (%s)\n", o.Username, o.Role)
	}
	for _, username := range orphanProfiles {
		fmt.Printf("profile without identity: %s\n", username)
	}

	if remove && len(orphanIdentities) > 0 {
		for _, o := range orphanIdentities {
			if _, err := credentialDB.ExecContext(ctx, `DELETE FROM identities WHERE username = $1`, o.Username); err != nil {
				log.Fatalf("delete identity %s: %v", o.Username, err)
			}
			fmt.Printf("deleted identity %s\n", o.Username)
		}
	}

	fmt.Printf("audit complete: %d orphaned identities, %d orphaned profiles\n", len(orphanIdentities), len(orphanProfiles))
	if len(orphanIdentities) > 0 || len(orphanProfiles) > 0 {
		os.Exit(1)
	}
}

// findOrphanIdentities returns STUDENT and INSTRUCTOR identities whose
// role profile never landed in the domain store. ADMIN identities carry
// no profile and are skipped.
func findOrphanIdentities(ctx context.Context, credentialDB, domainDB *sqlx.DB) ([]orphan, error) {
	var identities []orphan
	const identityQuery = `SELECT username, role FROM identities WHERE role IN ('STUDENT', 'INSTRUCTOR') ORDER BY username`
	if err := credentialDB.SelectContext(ctx, &identities, identityQuery); err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	profiled, err := profileUsernames(ctx, domainDB)
	if err != nil {
		return nil, err
	}

	var orphans []orphan
	for _, identity := range identities {
		if !profiled[identity.Username] {
			orphans = append(orphans, identity)
		}
	}
	return orphans, nil
}

// findOrphanProfiles returns profile user IDs with no backing identity.
func findOrphanProfiles(ctx context.Context, credentialDB, domainDB *sqlx.DB) ([]string, error) {
	profiled, err := profileUsernames(ctx, domainDB)
	if err != nil {
		return nil, err
	}

	var usernames []string
	if err := credentialDB.SelectContext(ctx, &usernames, `SELECT username FROM identities`); err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	known := make(map[string]bool, len(usernames))
	for _, username := range usernames {
		known[username] = true
	}

	var orphans []string
	for username := range profiled {
		if !known[username] {
			orphans = append(orphans, username)
		}
	}
	return orphans, nil
}

func profileUsernames(ctx context.Context, domainDB *sqlx.DB) (map[string]bool, error) {
	profiled := make(map[string]bool)

	var students []string
	if err := domainDB.SelectContext(ctx, &students, `SELECT user_id FROM student_profiles`); err != nil {
		return nil, fmt.Errorf("list student profiles: %w", err)
	}
	var instructors []string
	if err := domainDB.SelectContext(ctx, &instructors, `SELECT user_id FROM instructor_profiles`); err != nil {
		return nil, fmt.Errorf("list instructor profiles: %w", err)
	}

	for _, id := range students {
		profiled[id] = true
	}
	for _, id := range instructors {
		profiled[id] = true
	}
	return profiled, nil
}
