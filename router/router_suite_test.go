package router_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/cloudemu/cmn"
)

func TestRouter(t *testing.T) {
	cmn.InitIDGen(1)
	RegisterFailHandler(Fail)
	RunSpecs(t, "Router Suite")
}
