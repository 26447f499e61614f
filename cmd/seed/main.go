// seed carga datos de demostración para entornos locales: clientes y órdenes
// completadas desde fixtures CSV exportados del marketplace (codificados en
// ISO-8859-1, de ahí la transcodificación), más un usuario administrador.
//
// Uso: go run ./cmd/seed -customers clientes.csv -orders ordenes.csv \
//	-admin-email admin@local -admin-password cambiar123
//
// Formato clientes.csv: id,tipo_identificacion,identificacion,nombre,email,direccion,telefono
// Formato ordenes.csv (una fila por línea de la orden, cabecera repetida):
// order_id,numero,customer_id,subtotal,iva,envio,total,moneda,codigo,descripcion,cantidad,precio,descuento,tarifa,subtotal_linea,iva_linea
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/infrastructure/postgres"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/config"
)

func main() {
	customersPath := flag.String("customers", "", "CSV de clientes (ISO-8859-1)")
	ordersPath := flag.String("orders", "", "CSV de órdenes completadas (ISO-8859-1)")
	adminEmail := flag.String("admin-email", "", "email del usuario admin a crear")
	adminPassword := flag.String("admin-password", "", "password del usuario admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail("cargar configuración: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fail("conexión a PostgreSQL: %v", err)
	}
	defer pool.Close()

	if *customersPath != "" {
		n, err := seedCustomers(ctx, pool, *customersPath)
		if err != nil {
			fail("seed clientes: %v", err)
		}
		fmt.Printf("clientes insertados: %d\n", n)
	}
	if *ordersPath != "" {
		orders, items, err := seedOrders(ctx, pool, *ordersPath)
		if err != nil {
			fail("seed órdenes: %v", err)
		}
		fmt.Printf("órdenes insertadas: %d (líneas: %d)\n", orders, items)
	}
	if *adminEmail != "" && *adminPassword != "" {
		if err := seedAdmin(ctx, pool, *adminEmail, *adminPassword); err != nil {
			fail("seed admin: %v", err)
		}
		fmt.Printf("usuario admin listo: %s\n", *adminEmail)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// openCSV abre el archivo transcodificando de ISO-8859-1 a UTF-8.
func openCSV(path string) (*csv.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	r := csv.NewReader(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	r.TrimLeadingSpace = true
	return r, f.Close, nil
}

func seedCustomers(ctx context.Context, q postgres.Querier, path string) (int, error) {
	r, close, err := openCSV(path)
	if err != nil {
		return 0, err
	}
	defer close()

	const insert = `
		INSERT INTO customers (id, identification_type, identification, name, email, address, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (id) DO NOTHING`

	count := 0
	for line := 0; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("línea %d: %w", line+1, err)
		}
		if line == 0 && rec[0] == "id" { // cabecera
			continue
		}
		if len(rec) < 7 {
			return count, fmt.Errorf("línea %d: se esperan 7 columnas, hay %d", line+1, len(rec))
		}
		if _, err := q.Exec(ctx, insert, rec[0], rec[1], rec[2], rec[3], rec[4], rec[5], rec[6]); err != nil {
			return count, fmt.Errorf("línea %d: %w", line+1, err)
		}
		count++
	}
	return count, nil
}

func seedOrders(ctx context.Context, q postgres.Querier, path string) (orders, items int, err error) {
	r, close, err := openCSV(path)
	if err != nil {
		return 0, 0, err
	}
	defer close()

	const insertOrder = `
		INSERT INTO orders (id, number, customer_id, status, subtotal, tax_amount, shipping_cost, total, currency, created_at, updated_at)
		VALUES ($1, $2, $3, 'COMPLETED', $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (id) DO NOTHING`
	const insertItem = `
		INSERT INTO order_items (id, order_id, product_code, description, quantity, unit_price, discount, tax_rate, subtotal, tax_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	seen := make(map[string]bool)
	for line := 0; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return orders, items, fmt.Errorf("línea %d: %w", line+1, err)
		}
		if line == 0 && rec[0] == "order_id" { // cabecera
			continue
		}
		if len(rec) < 16 {
			return orders, items, fmt.Errorf("línea %d: se esperan 16 columnas, hay %d", line+1, len(rec))
		}

		if !seen[rec[0]] {
			if _, err := q.Exec(ctx, insertOrder,
				rec[0], rec[1], rec[2], rec[3], rec[4], rec[5], rec[6], rec[7]); err != nil {
				return orders, items, fmt.Errorf("línea %d (orden): %w", line+1, err)
			}
			seen[rec[0]] = true
			orders++
		}
		if _, err := q.Exec(ctx, insertItem,
			uuid.New().String(), rec[0], rec[8], rec[9], rec[10], rec[11], rec[12], rec[13], rec[14], rec[15]); err != nil {
			return orders, items, fmt.Errorf("línea %d (item): %w", line+1, err)
		}
		items++
	}
	return orders, items, nil
}

func seedAdmin(ctx context.Context, q postgres.Querier, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash de password: %w", err)
	}
	const insert = `
		INSERT INTO users (id, email, password_hash, name, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'Administrador', 'admin', 'active', now(), now())
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, status = 'active'`
	_, err = q.Exec(ctx, insert, uuid.New().String(), email, string(hash))
	return err
}
