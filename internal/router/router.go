package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saji-pos/api/internal/config"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/handler"
	mw "github.com/saji-pos/api/internal/middleware"
	"github.com/saji-pos/api/internal/printer"
	"github.com/saji-pos/api/internal/service"
	"github.com/saji-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, p printer.Printer) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	r.Route("/auth", authHandler.RegisterRoutes)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/{station}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, chi.URLParam(r, "station"), w, r)
	})

	// Services share the pool for multi-statement transactions; each gets a
	// factory so locked work runs against the transaction, not the pool.
	orderService := service.NewOrderService(queries, pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, hub, p)
	paymentService := service.NewPaymentService(queries, pool, func(db database.DBTX) service.PaymentStore {
		return database.New(db)
	}, hub, p)
	tableService := service.NewTableService(pool, func(db database.DBTX) service.TableStore {
		return database.New(db)
	}, hub)
	inventoryService := service.NewInventoryService(queries, pool, func(db database.DBTX) service.InventoryStore {
		return database.New(db)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Orders and payments: front of house plus management
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole("CASHIER", "FLOOR", "MANAGER", "OWNER"))

			orderHandler := handler.NewOrderHandler(orderService, queries)
			paymentHandler := handler.NewPaymentHandler(paymentService)
			r.Route("/orders", func(r chi.Router) {
				orderHandler.RegisterRoutes(r)
				paymentHandler.RegisterRoutes(r)
			})

			tableHandler := handler.NewTableHandler(tableService, queries)
			r.Route("/tables", tableHandler.RegisterRoutes)
		})

		// Catalog reads are open to any authenticated role
		productHandler := handler.NewProductHandler(inventoryService, queries)
		r.Route("/products", func(r chi.Router) {
			productHandler.RegisterReadRoutes(r)

			// Catalog and stock mutations: management only
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole("MANAGER", "OWNER"))
				productHandler.RegisterManageRoutes(r)
			})
		})

		lookupHandler := handler.NewLookupHandler(queries)
		lookupHandler.RegisterReadRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole("MANAGER", "OWNER"))
			lookupHandler.RegisterManageRoutes(r)
		})
	})

	return r
}
