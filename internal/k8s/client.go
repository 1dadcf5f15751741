// Package k8s triggers email import Jobs on the cluster the API runs in.
package k8s

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// Client wraps the Kubernetes client
type Client struct {
	clientset *kubernetes.Clientset
	namespace string
}

// NewClient creates a new Kubernetes client.
// If namespace is empty, defaults to "stylomail".
func NewClient(namespace string) (*Client, error) {
	if namespace == "" {
		namespace = "stylomail"
	}

	config, err := getKubeConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return &Client{
		clientset: clientset,
		namespace: namespace,
	}, nil
}

// getKubeConfig tries in-cluster config first, then the kubeconfig file.
func getKubeConfig() (*rest.Config, error) {
	config, err := rest.InClusterConfig()
	if err == nil {
		return config, nil
	}

	var kubeconfig string
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	}
	if envKubeconfig := os.Getenv("KUBECONFIG"); envKubeconfig != "" {
		kubeconfig = envKubeconfig
	}

	config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	return config, nil
}

// CreateEmailImportJob creates a Job that runs the import-emails binary
// against the mounted email volume.
func (c *Client) CreateEmailImportJob(ctx context.Context, jobName, containerImage, importPath string) error {
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      jobName,
			Namespace: c.namespace,
			Labels: map[string]string{
				"app":          "email-import",
				"job-type":     "data-import",
				"triggered-by": "api",
			},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:            int32Ptr(3),
			TTLSecondsAfterFinished: int32Ptr(86400),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						"app":      "email-import",
						"job-type": "data-import",
					},
				},
				Spec: c.buildPodSpec(containerImage, importPath),
			},
		},
	}

	_, err := c.clientset.BatchV1().Jobs(c.namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// buildPodSpec builds the pod spec for the email import job. The
// import container walks the email volume and feeds every .eml and
// .mbox file through the ingestion pipeline.
func (c *Client) buildPodSpec(containerImage, importPath string) corev1.PodSpec {
	importScript := fmt.Sprintf(`set -e
echo "===== Starting Email Import Process ====="
eml_count=$(find %[1]s -name "*.eml" -type f | wc -l)
mbox_count=$(find %[1]s -name "*.mbox" -type f | wc -l)
echo "Found $eml_count EML files and $mbox_count MBOX files"
if [ "$eml_count" -gt 0 ]; then
  echo "===== Importing EML files ====="
  /app/bin/import-emails -dir %[1]s -embeddings=true
fi
if [ "$mbox_count" -gt 0 ]; then
  echo "===== Importing MBOX files ====="
  find %[1]s -name "*.mbox" -type f | while read mbox_file; do
    echo "Processing: $mbox_file"
    /app/bin/import-emails -mbox "$mbox_file" -embeddings=true
  done
fi
echo "===== Email Import Complete ====="`, importPath)

	return corev1.PodSpec{
		RestartPolicy:      corev1.RestartPolicyNever,
		ServiceAccountName: "email-import-sa",
		Containers: []corev1.Container{
			{
				Name:    "import-emails",
				Image:   containerImage,
				Command: []string{"/bin/sh", "-c", importScript},
				Env: []corev1.EnvVar{
					{
						Name: "DATABASE_URL",
						ValueFrom: &corev1.EnvVarSource{
							SecretKeyRef: &corev1.SecretKeySelector{
								LocalObjectReference: corev1.LocalObjectReference{
									Name: "stylomail-secrets",
								},
								Key: "database-url",
							},
						},
					},
					{
						Name: "OPENAI_API_KEY",
						ValueFrom: &corev1.EnvVarSource{
							SecretKeyRef: &corev1.SecretKeySelector{
								LocalObjectReference: corev1.LocalObjectReference{
									Name: "stylomail-secrets",
								},
								Key: "openai-api-key",
							},
						},
					},
					{
						Name:  "QDRANT_HOST",
						Value: "qdrant",
					},
				},
				VolumeMounts: []corev1.VolumeMount{
					{
						Name:      "email-data",
						MountPath: importPath,
					},
				},
				Resources: corev1.ResourceRequirements{
					Requests: corev1.ResourceList{
						corev1.ResourceMemory: resourceQuantity("1Gi"),
						corev1.ResourceCPU:    resourceQuantity("500m"),
					},
					Limits: corev1.ResourceList{
						corev1.ResourceMemory: resourceQuantity("4Gi"),
						corev1.ResourceCPU:    resourceQuantity("2000m"),
					},
				},
			},
		},
		Volumes: []corev1.Volume{
			{
				Name: "email-data",
				VolumeSource: corev1.VolumeSource{
					PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
						ClaimName: "email-import-data",
					},
				},
			},
		},
	}
}

// GetJobStatus gets the status of a job
func (c *Client) GetJobStatus(ctx context.Context, jobName string) (*batchv1.Job, error) {
	job, err := c.clientset.BatchV1().Jobs(c.namespace).Get(ctx, jobName, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// DeleteJob deletes a job
func (c *Client) DeleteJob(ctx context.Context, jobName string) error {
	deletePolicy := metav1.DeletePropagationForeground
	err := c.clientset.BatchV1().Jobs(c.namespace).Delete(ctx, jobName, metav1.DeleteOptions{
		PropagationPolicy: &deletePolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func int32Ptr(i int32) *int32 {
	return &i
}

func resourceQuantity(value string) resource.Quantity {
	qty, err := resource.ParseQuantity(value)
	if err != nil {
		return resource.Quantity{}
	}
	return qty
}
