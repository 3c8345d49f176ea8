package templates

import "studentservices-api/internal/models"

const (
	RequestConfirmation = "request_confirmation"
	StatusUpdate        = "status_update"
	AdminNotification   = "admin_notification"
)

const (
	clientFooterEN = "Best regards,<br>Student Services Team<br><br><small>This is an automated message. Please do not reply to this email.</small>"
	clientFooterAR = "مع أطيب التحيات،<br>فريق خدمات الطلاب<br><br><small>هذه رسالة تلقائية. يرجى عدم الرد على هذا البريد الإلكتروني.</small>"
)

func builtinTemplates() map[string]map[models.Language]Template {
	return map[string]map[models.Language]Template{
		RequestConfirmation: {
			models.LanguageEnglish: {
				Subject:  "Service Request Confirmation - {project_title}",
				Greeting: "Dear {client_name},",
				Body: `Thank you for submitting your service request. We have received your request and will review it shortly.

<strong>Request Details:</strong>
• Service: {service_name}
• Project: {project_title}
• Request ID: #{request_id}
• Submitted: {created_at}
• Deadline: {deadline}

<strong>What happens next?</strong>
1. Our team will review your request within 24 hours
2. We will contact you to discuss project requirements
3. You will receive a detailed quote and timeline
4. Upon approval, we will begin working on your project

You can track your request status by visiting: {tracking_url}

If you have any questions, please don't hesitate to contact us at {contact_email} or call {contact_phone}.`,
				Footer: clientFooterEN,
			},
			models.LanguageArabic: {
				Subject:  "تأكيد طلب الخدمة - {project_title}",
				Greeting: "عزيزي {client_name}،",
				Body: `شكراً لك على تقديم طلب الخدمة. لقد استلمنا طلبك وسنقوم بمراجعته قريباً.

<strong>تفاصيل الطلب:</strong>
• الخدمة: {service_name}
• المشروع: {project_title}
• رقم الطلب: #{request_id}
• تاريخ التقديم: {created_at}
• الموعد النهائي: {deadline}

<strong>الخطوات التالية:</strong>
1. سيقوم فريقنا بمراجعة طلبك خلال 24 ساعة
2. سنتواصل معك لمناقشة متطلبات المشروع
3. ستحصل على عرض سعر مفصل وجدول زمني
4. بعد الموافقة، سنبدأ العمل على مشروعك

يمكنك تتبع حالة طلبك من خلال زيارة: {tracking_url}

إذا كان لديك أي استفسارات، لا تتردد في التواصل معنا على {contact_email} أو الاتصال على {contact_phone}.`,
				Footer: clientFooterAR,
			},
		},
		StatusUpdate: {
			models.LanguageEnglish: {
				Subject:  "Service Request Update - {project_title}",
				Greeting: "Dear {client_name},",
				Body: `Your service request status has been updated.

<strong>Request Details:</strong>
• Service: {service_name}
• Project: {project_title}
• Request ID: #{request_id}
• Previous Status: {old_status}
• New Status: <strong>{new_status}</strong>

{status_message}

You can view the full details of your request here: {tracking_url}

If you have any questions about this update, please contact us at {contact_email}.`,
				Footer: clientFooterEN,
			},
			models.LanguageArabic: {
				Subject:  "تحديث طلب الخدمة - {project_title}",
				Greeting: "عزيزي {client_name}،",
				Body: `تم تحديث حالة طلب الخدمة الخاص بك.

<strong>تفاصيل الطلب:</strong>
• الخدمة: {service_name}
• المشروع: {project_title}
• رقم الطلب: #{request_id}
• الحالة السابقة: {old_status}
• الحالة الجديدة: <strong>{new_status}</strong>

{status_message}

يمكنك عرض التفاصيل الكاملة لطلبك هنا: {tracking_url}

إذا كان لديك أي استفسارات حول هذا التحديث، يرجى التواصل معنا على {contact_email}.`,
				Footer: clientFooterAR,
			},
		},
		// Staff mail is English only; other languages fall back.
		AdminNotification: {
			models.LanguageEnglish: {
				Subject:  "New Service Request: {project_title}",
				Greeting: "Hello Admin,",
				Body: `A new service request has been submitted and requires attention.

<strong>Request Details:</strong>
• Client: {client_name} ({client_email})
• Phone: {client_phone}
• Service: {service_name}
• Project: {project_title}
• Priority: <strong>{priority}</strong>
• Deadline: {deadline}
• Budget: {budget}
• Request ID: #{request_id}
• Submitted: {created_at}

<strong>Project Description:</strong>
{project_description}

Please review this request in the admin dashboard: {admin_url}

{urgency_note}`,
				Footer: "Student Services Admin System",
				Extras: map[string]string{
					"urgency_high":    "<strong>⚠️ HIGH PRIORITY REQUEST</strong> - This request has been marked as high priority and requires immediate attention.",
					"urgency_urgent":  "<strong>🚨 URGENT REQUEST</strong> - This request is marked as URGENT and needs immediate action.",
					"urgency_overdue": "<strong>⏰ OVERDUE ALERT</strong> - This request is past its deadline and requires immediate attention.",
				},
			},
		},
	}
}

func builtinStatusMessages() map[models.Language]map[models.RequestStatus]string {
	return map[models.Language]map[models.RequestStatus]string{
		models.LanguageEnglish: {
			models.StatusInProgress: `<strong>Great news!</strong> We have started working on your project. Our team will keep you updated on the progress.

<strong>What to expect:</strong>
• Regular progress updates
• Direct communication with your assigned team member
• Quality assurance checks throughout the process`,
			models.StatusCompleted: `<strong>Excellent!</strong> Your project has been completed successfully.

<strong>Next steps:</strong>
• Check your email for the deliverables
• Review the completed work
• Provide feedback if needed
• Request revisions if necessary (within the agreed terms)`,
			models.StatusCancelled: `Your service request has been cancelled.

If this cancellation was unexpected or if you have any questions, please contact us immediately at {contact_email}.

We apologize for any inconvenience and would be happy to discuss alternative solutions.`,
		},
		models.LanguageArabic: {
			models.StatusInProgress: `<strong>أخبار رائعة!</strong> لقد بدأنا العمل على مشروعك. سيقوم فريقنا بإبقائك على اطلاع بالتقدم.

<strong>ما يمكن توقعه:</strong>
• تحديثات منتظمة حول التقدم
• تواصل مباشر مع عضو الفريق المخصص لك
• فحوصات ضمان الجودة طوال العملية`,
			models.StatusCompleted: `<strong>ممتاز!</strong> تم إنجاز مشروعك بنجاح.

<strong>الخطوات التالية:</strong>
• تحقق من بريدك الإلكتروني للحصول على المخرجات
• راجع العمل المنجز
• قدم ملاحظاتك إذا لزم الأمر
• اطلب تعديلات إذا لزم الأمر (ضمن الشروط المتفق عليها)`,
			models.StatusCancelled: `تم إلغاء طلب الخدمة الخاص بك.

إذا كان هذا الإلغاء غير متوقع أو إذا كان لديك أي استفسارات، يرجى التواصل معنا فوراً على {contact_email}.

نعتذر عن أي إزعاج ونسعد بمناقشة حلول بديلة.`,
		},
	}
}

// urgencyKeys maps an admin notification type to its banner.
var urgencyKeys = map[string]string{
	models.TypeUrgentRequest:  "urgency_urgent",
	models.TypeHighRequest:    "urgency_high",
	models.TypeOverdueRequest: "urgency_overdue",
}
