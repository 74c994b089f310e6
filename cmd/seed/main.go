// Development data seeder: creates the receptionist/doctor roles with their permissions,
// an admin staff account, a batch of fake patients and the default capacity setting.
package main

import (
	"clinic-backend/internal/auth"
	"clinic-backend/internal/configs"
	"clinic-backend/internal/database"
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

var (
	configPath    = flag.String("config", "", "Config file path")
	patientsCount = flag.Int("patients", 25, "Number of fake patients to create")
	adminEmail    = flag.String("admin-email", "admin@clinic.local", "Admin staff email")
	adminPass     = flag.String("admin-pass", "admin", "Admin staff password")
)

const (
	insertRoleQuery       = "INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id"
	insertPermissionQuery = "INSERT INTO permissions (name) VALUES ($1) ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id"
	grantPermissionQuery  = "INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	insertStaffQuery      = "INSERT INTO staff (uuid, email, full_name, password, role_id) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (email) DO NOTHING"
	insertPatientQuery    = "INSERT INTO patients (full_name, gender, birth_year, phone) VALUES ($1, $2, $3, $4)"
	insertSettingQuery    = "INSERT INTO settings (key, value, description) VALUES ($1, $2, $3) ON CONFLICT (key) DO NOTHING"
)

func mustExecReturningID(ctx context.Context, dbConn database.Connection, query string, params ...interface{}) int64 {
	row := dbConn.DB().QueryRowContext(ctx, query, params...)
	var id int64
	if err := row.Scan(&id); err != nil {
		log.Fatalln(err)
	}
	return id
}

func main() {
	flag.Parse()
	_ = godotenv.Load()
	if *configPath == "" {
		log.Fatal("no config file path was given")
	}
	config := configs.MustLoad(*configPath)
	dbConn, err := database.NewConnection(config)
	if err != nil {
		log.Fatalln(err)
	}
	defer dbConn.Close()

	ctx := context.Background()

	adminRoleID := mustExecReturningID(ctx, dbConn, insertRoleQuery, "admin")
	receptionRoleID := mustExecReturningID(ctx, dbConn, insertRoleQuery, "receptionist")

	permissions := []auth.Permission{auth.ViewAppointments, auth.CreateAppointment, auth.UpdateAppointment, auth.CancelAppointment}
	for _, permission := range permissions {
		permissionID := mustExecReturningID(ctx, dbConn, insertPermissionQuery, string(permission))
		for _, roleID := range []int64{adminRoleID, receptionRoleID} {
			if _, err = dbConn.DB().ExecContext(ctx, grantPermissionQuery, roleID, permissionID); err != nil {
				log.Fatalln(err)
			}
		}
	}

	passHash, err := auth.EncryptPassword(*adminPass)
	if err != nil {
		log.Fatalln(err)
	}
	if _, err = dbConn.DB().ExecContext(ctx, insertStaffQuery, uuid.New(), *adminEmail, "Administrator", passHash, adminRoleID); err != nil {
		log.Fatalln(err)
	}

	for i := 0; i < *patientsCount; i++ {
		gender := "female"
		if gofakeit.Bool() {
			gender = "male"
		}
		birthYear := gofakeit.Number(1940, 2020)
		if _, err = dbConn.DB().ExecContext(ctx, insertPatientQuery, gofakeit.Name(), gender, birthYear, gofakeit.Phone()); err != nil {
			log.Fatalln(err)
		}
	}

	if _, err = dbConn.DB().ExecContext(ctx, insertSettingQuery, "max_patients_per_day", "40", "Maximum number of patients accepted per day"); err != nil {
		log.Fatalln(err)
	}

	fmt.Printf("seeded %d patients, admin account %s\n", *patientsCount, *adminEmail)
}
