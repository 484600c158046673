// Package containers manages Docker containers for integration tests using
// testcontainers-go. It currently provides a MySQL 8.0 container used to
// exercise the repository layer against a real MySQL server.
//
// Containers are typically managed from TestMain:
//
//	var mysqlContainer *containers.MySQLContainer
//
//	func TestMain(m *testing.M) {
//	    var err error
//	    mysqlContainer, err = containers.NewMySQLContainer(context.Background(), nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    _ = mysqlContainer.Terminate(context.Background())
//	    os.Exit(code)
//	}
//
// Integration tests using this package carry the "integration" build tag:
//
//	go test -tags=integration ./...
package containers
