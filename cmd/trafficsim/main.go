// Command trafficsim runs synthetic traffic scenarios between simulated
// endpoints.
package main

import "github.com/sarchlab/trafficapp/cmd/trafficsim/cmd"

func main() {
	cmd.Execute()
}
