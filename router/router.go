package router

import (
	"net/http"
	"pharmacy-api/handler"
	"pharmacy-api/model"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	labHandler *handler.LabTestHandler,
	prescHandler *handler.PrescriptionHandler,
	authMW *handler.AuthMiddleware,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.Handler())

	// Public auth routes
	mux.Handle("POST /api/auth/register", handler.ErrorHandlingMiddleware(authHandler.Register))
	mux.Handle("POST /api/auth/login", handler.ErrorHandlingMiddleware(authHandler.Login))
	mux.Handle("POST /api/auth/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
	mux.Handle("POST /api/auth/logout", handler.ErrorHandlingMiddleware(authHandler.Logout))
	mux.Handle("GET /api/auth/verify-email/{token}", handler.ErrorHandlingMiddleware(authHandler.VerifyEmail))

	// Protected auth routes
	mux.Handle("GET /api/auth/profile",
		authMW.Authenticate(handler.ErrorHandlingMiddleware(authHandler.GetProfile)))
	mux.Handle("PUT /api/auth/profile",
		authMW.Authenticate(handler.ErrorHandlingMiddleware(authHandler.UpdateProfile)))

	// User administration
	adminOnly := authMW.RequireRole(model.RoleAdmin)
	mux.Handle("GET /api/users",
		authMW.Authenticate(adminOnly(handler.ErrorHandlingMiddleware(userHandler.ListUsers))))
	mux.Handle("PUT /api/users/{id}/role",
		authMW.Authenticate(adminOnly(handler.ErrorHandlingMiddleware(userHandler.UpdateUserRole))))

	// Lab tests
	mux.Handle("POST /api/lab-tests",
		authMW.Authenticate(authMW.RequirePermission("create:lab_test")(
			handler.ErrorHandlingMiddleware(labHandler.CreateLabTest))))
	mux.Handle("GET /api/lab-tests",
		authMW.Authenticate(authMW.RequirePermission("read:lab_test")(
			handler.ErrorHandlingMiddleware(labHandler.ListLabTests))))
	mux.Handle("PUT /api/lab-tests/{id}/result",
		authMW.Authenticate(authMW.RequirePermission("update:lab_result")(
			handler.ErrorHandlingMiddleware(labHandler.UpdateLabResult))))

	// Prescriptions and medications
	mux.Handle("POST /api/prescriptions",
		authMW.Authenticate(authMW.RequirePermission("create:prescription")(
			handler.ErrorHandlingMiddleware(prescHandler.CreatePrescription))))
	mux.Handle("GET /api/prescriptions",
		authMW.Authenticate(authMW.RequirePermission("read:prescription")(
			handler.ErrorHandlingMiddleware(prescHandler.ListPrescriptions))))
	mux.Handle("GET /api/prescriptions/search/{patientName}",
		authMW.Authenticate(authMW.RequirePermission("read:prescription")(
			handler.ErrorHandlingMiddleware(prescHandler.SearchByPatientName))))
	mux.Handle("PUT /api/prescriptions/{id}/status",
		authMW.Authenticate(authMW.RequirePermission("update:prescription")(
			handler.ErrorHandlingMiddleware(prescHandler.UpdatePrescriptionStatus))))
	mux.Handle("GET /api/medications",
		authMW.Authenticate(authMW.RequirePermission("read:medication")(
			handler.ErrorHandlingMiddleware(prescHandler.GetAvailableMedications))))

	return handler.RequestIDMiddleware(mux)
}
