// globalcache inspects and maintains the shared entity cache.
package main

import "github.com/adrianmcphee/globalcache/internal/cli"

func main() {
	cli.Execute()
}
