// Package cmd provides the command-line interface for flux-kube.
//
// This package implements a Cobra-based CLI with the following subcommands:
//   - getdeployments: lists Deployments in one or more namespaces
//   - contexts: lists the kubeconfig contexts
//   - version: displays the application version
//   - self-update: updates the binary to the latest version from GitHub releases
//
// Command Structure:
//
//	flux-kube getdeployments [-n NAMESPACE] [-o name|wide|json|yaml]
//	flux-kube contexts [-o wide|name]
//	flux-kube version
//	flux-kube self-update
//	flux-kube help [command]
//
// Global flags select the kubeconfig file and context, switch to in-cluster
// service account authentication, override the bearer token and tune API
// rate limits. Each of them can also be set through a FLUX_KUBE_ environment
// variable, which only applies when the flag itself was not given.
package cmd
